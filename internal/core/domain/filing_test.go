package domain

import (
	"strings"
	"testing"
)

func TestDraftInputValidateJoinsEveryProblem(t *testing.T) {
	err := DraftInput{Mode: FilingAutomated, Motive: Motive("bonus")}.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"account_id is required", `motive "bonus" is not supported`, "dispute_date is required"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
	if strings.Count(msg, "; ") < 2 {
		t.Fatalf("expected problems joined with '; ', got %q", msg)
	}
}
