package workflow

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ruhusa/core"
)

var (
	dateRangeTag  = "daterange"
	dateRangeText = "end date cannot be before start date"

	labRequiredTag  = "labrequired"
	labRequiredText = "a lab is required when lab access is needed"
)

// RegisterValidators registers workflow-specific validations on the app validator.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newRequestStructValidation, NewRequest{})
	core.RegisterCustomTranslation(validate, translator, dateRangeTag, dateRangeText)
	core.RegisterCustomTranslation(validate, translator, labRequiredTag, labRequiredText)
}

// newRequestStructValidation does struct level validation on NewRequest.
func newRequestStructValidation(sl validator.StructLevel) {
	nr, ok := sl.Current().Interface().(NewRequest)
	if !ok {
		return
	}
	if !nr.StartDate.IsZero() && !nr.EndDate.IsZero() && nr.EndDate.Before(nr.StartDate) {
		sl.ReportError(nr.EndDate, "end_date", "EndDate", dateRangeTag, "")
	}
	if nr.NeedsLab && nr.LabID == "" {
		sl.ReportError(nr.LabID, "lab_id", "LabID", labRequiredTag, "")
	}
}

func (nr NewRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(nr)
}

func (sd StepDecision) Validate(validate *validator.Validate) error {
	return validate.Struct(sd)
}
