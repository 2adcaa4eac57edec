package workflow

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ruhusa/core"
)

func validNewRequest() NewRequest {
	start := time.Now().Add(24 * time.Hour)
	return NewRequest{
		Type:       TypeOnDuty,
		Reason:     "symposium",
		StartDate:  start,
		EndDate:    start.Add(4 * time.Hour),
		StudentIDs: []string{"std-1"},
	}
}

func TestNewRequest_Validate(t *testing.T) {
	validate, translator := core.NewValidator()
	RegisterValidators(validate, translator)

	tests := []struct {
		name      string
		mutate    func(*NewRequest)
		wantField string
	}{
		{"valid", func(nr *NewRequest) {}, ""},
		{"missing type", func(nr *NewRequest) { nr.Type = "" }, "type"},
		{"bad type", func(nr *NewRequest) { nr.Type = "VACATION" }, "type"},
		{"missing reason", func(nr *NewRequest) { nr.Reason = "" }, "reason"},
		{"no students", func(nr *NewRequest) { nr.StudentIDs = nil }, "student_ids"},
		{"end before start", func(nr *NewRequest) { nr.EndDate = nr.StartDate.Add(-time.Hour) }, "end_date"},
		{"lab needed but missing", func(nr *NewRequest) { nr.NeedsLab = true }, "lab_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nr := validNewRequest()
			tt.mutate(&nr)

			err := nr.Validate(validate)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			if !assert.True(t, ok, "want ValidationErrors, got %v", err) {
				return
			}
			found := false
			for _, fe := range vErrs {
				if fe.Field() == tt.wantField {
					found = true
				}
			}
			assert.True(t, found, "no error reported for field %q: %v", tt.wantField, err)
		})
	}
}

func TestStepDecision_Validate(t *testing.T) {
	validate, translator := core.NewValidator()
	RegisterValidators(validate, translator)

	assert.NoError(t, StepDecision{Decision: DecisionApproved}.Validate(validate))
	assert.NoError(t, StepDecision{Decision: DecisionRejected, Comments: "nope"}.Validate(validate))
	assert.Error(t, StepDecision{}.Validate(validate))
	assert.Error(t, StepDecision{Decision: "MAYBE"}.Validate(validate))
}
