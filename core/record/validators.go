package record

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/unilife/core"
)

var (
	priorityTag  = "priority"
	priorityText = "{0} must be one of low, medium or high"

	taskStatusTag  = "taskstatus"
	taskStatusText = "{0} must be one of todo, inprogress or done"

	assessmentTypeTag  = "assessmenttype"
	assessmentTypeText = "{0} must be one of assignment, test or exam"
)

// InitValidators registers the record validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(priorityTag, priorityValidation)
	core.RegisterCustomTranslation(validate, translator, priorityTag, priorityText)

	_ = validate.RegisterValidation(taskStatusTag, taskStatusValidation)
	core.RegisterCustomTranslation(validate, translator, taskStatusTag, taskStatusText)

	_ = validate.RegisterValidation(assessmentTypeTag, assessmentTypeValidation)
	core.RegisterCustomTranslation(validate, translator, assessmentTypeTag, assessmentTypeText)
}

func priorityValidation(fl validator.FieldLevel) bool {
	p := Priority(fl.Field().String())
	for _, known := range Priorities {
		if p == known {
			return true
		}
	}
	return false
}

func taskStatusValidation(fl validator.FieldLevel) bool {
	s := Status(fl.Field().String())
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

func assessmentTypeValidation(fl validator.FieldLevel) bool {
	t := fl.Field().String()
	for _, known := range AssessmentTypes {
		if t == known {
			return true
		}
	}
	return false
}
