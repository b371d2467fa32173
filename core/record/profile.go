package record

import "github.com/go-playground/validator/v10"

// Profile is the user-editable academic profile used by projections.
type Profile struct {
	TargetAverage float64 `json:"targetAverage" validate:"grade"`
}

func (p Profile) Validate(validate *validator.Validate) error {
	return validate.Struct(p)
}
