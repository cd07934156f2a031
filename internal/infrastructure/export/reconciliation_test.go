package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

func TestWriteReconciliationsXLSX(t *testing.T) {
	created := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	resolved := created.Add(26 * time.Hour)
	items := []domain.ReconciliationException{
		{ID: "rx-1", FilingID: "f-1", AccountID: "acct-1", Reason: "insufficient credit at commit", CreatedAt: created},
		{ID: "rx-2", FilingID: "f-2", AccountID: "acct-2", Reason: "credit account not found", CreatedAt: created, ResolvedAt: &resolved},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReconciliationsXLSX(&buf, items))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ReconciliationSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, reconciliationHeader, rows[0])
	assert.Equal(t, []string{"rx-1", "f-1", "acct-1", "insufficient credit at commit", "2026-03-12 10:00:00"}, rows[1])
	assert.Equal(t, "2026-03-13 12:00:00", rows[2][5])
}

func TestWriteReconciliationsXLSXEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReconciliationsXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ReconciliationSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
