package group

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/roll"
)

var (
	rollStatesTag  = "rollstates"
	rollStatesText = "invalid roll states"

	ltmtTag  = "ltmt"
	ltmtText = "must be one of GREATER_THAN, LESS_THAN"
)

// InitValidators registers the Group validation tags. core.InitValidators must be called first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(rollStatesTag, rollStatesValidation)
	core.RegisterCustomTranslation(validate, translator, rollStatesTag, rollStatesText)

	_ = validate.RegisterValidation(ltmtTag, ltmtValidation)
	core.RegisterCustomTranslation(validate, translator, ltmtTag, ltmtText)
}

// Custom Validators

// rollStatesValidation checks that provided roll states are all in roll.AllStates
func rollStatesValidation(fl validator.FieldLevel) bool {
	if states, ok := fl.Field().Interface().(RollStates); ok {
		for _, state := range states {
			if !roll.IsValidState(state) {
				return false
			}
		}
		return true
	}
	return false
}

func ltmtValidation(fl validator.FieldLevel) bool {
	if cmp, ok := fl.Field().Interface().(Comparator); ok {
		return cmp.IsValid()
	}
	return false
}
