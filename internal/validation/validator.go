package validation

import (
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
)

// DOBLayout is the day-first date format collected on the landing page.
const DOBLayout = "02/01/2006"

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	return NewWithClock(time.Now)
}

// NewWithClock is New with an injectable clock for the date of birth checks.
func NewWithClock(now func() time.Time) *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterStructValidation(extraStructValidation(now), Extra{})
	v.RegisterStructValidation(payOrderStructValidation, PayOrderRequest{})

	return v
}

// extraStructValidation checks that dob parses as dd/mm/yyyy and is not in the future.
func extraStructValidation(now func() time.Time) validatorv10.StructLevelFunc {
	return func(sl validatorv10.StructLevel) {
		extra := sl.Current().Interface().(Extra)
		if extra.DOB == "" {
			return
		}
		dob, err := time.Parse(DOBLayout, extra.DOB)
		if err != nil {
			sl.ReportError(extra.DOB, "dob", "DOB", "dob_format", DOBLayout)
			return
		}
		if dob.After(now()) {
			sl.ReportError(extra.DOB, "dob", "DOB", "dob_past", "")
		}
	}
}

func payOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(PayOrderRequest)
	if req.Source != nil && req.Source.ID == "" {
		sl.ReportError(req.Source.ID, "source.id", "Source.ID", "required", "")
	}
}
