package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

const ReconciliationSheet = "Reconciliations"

var reconciliationHeader = []string{"ID", "Filing", "Account", "Reason", "Created (UTC)", "Resolved (UTC)"}

// WriteReconciliationsXLSX renders the exceptions as one worksheet, one row per exception.
func WriteReconciliationsXLSX(w io.Writer, items []domain.ReconciliationException) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReconciliationSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for col, title := range reconciliationHeader {
		if err := setCell(f, col+1, 1, title); err != nil {
			return err
		}
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(reconciliationHeader), 1)
	if err := f.SetCellStyle(ReconciliationSheet, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, item := range items {
		row := i + 2
		values := []any{
			item.ID,
			item.FilingID,
			item.AccountID,
			item.Reason,
			item.CreatedAt.UTC().Format(time.DateTime),
			formatResolved(item.ResolvedAt),
		}
		for col, value := range values {
			if value == "" {
				continue
			}
			if err := setCell(f, col+1, row, value); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(ReconciliationSheet, "A", "C", 38); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(ReconciliationSheet, "D", "D", 60); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(ReconciliationSheet, "E", "F", 20); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetCellValue(ReconciliationSheet, cell, value); err != nil {
		return fmt.Errorf("set cell %s: %w", cell, err)
	}
	return nil
}

func formatResolved(at *time.Time) string {
	if at == nil {
		return ""
	}
	return at.UTC().Format(time.DateTime)
}
