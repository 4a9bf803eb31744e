package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"statement-classifier/internal/models"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator with custom rules and error formatting
type Validator struct {
	validate *validator.Validate
}

// RuleInput is the user-supplied part of a category rule
type RuleInput struct {
	Keywords []string          `json:"keywords" validate:"rule_keywords"`
	Priority int               `json:"priority"`
	Tags     map[string]string `json:"tags" validate:"required,min=1,dive,keys,classification_field,endkeys"`
}

var (
	instance *Validator
	once     sync.Once
)

// GetValidator returns the shared validator instance
func GetValidator() *Validator {
	once.Do(func() {
		instance = NewValidator()
	})
	return instance
}

// NewValidator creates a new validator instance with custom rules and configuration
func NewValidator() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("rule_keywords", validateRuleKeywords)
	_ = v.RegisterValidation("classification_field", validateClassificationField)
	_ = v.RegisterValidation("necessity", validateNecessity)
	_ = v.RegisterValidation("recurrence", validateRecurrence)
	v.RegisterStructValidation(validateRuleTagValues, RuleInput{})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// ValidateStruct validates s and returns field-keyed messages, nil when valid
func (v *Validator) ValidateStruct(s interface{}) map[string]string {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	return FieldErrors(err)
}

// ValidateRuleInput validates a rule definition
func (v *Validator) ValidateRuleInput(input RuleInput) map[string]string {
	return v.ValidateStruct(input)
}

// FieldErrors flattens validator errors into field -> message
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fieldName(fe)] = message(fe)
	}
	return out
}

// Details renders field errors as sorted "field: message" lines
func Details(fieldErrors map[string]string) []string {
	details := make([]string, 0, len(fieldErrors))
	for field, msg := range fieldErrors {
		details = append(details, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(details)
	return details
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("is out of range (%s %s)", fe.Tag(), fe.Param())
	case "rule_keywords":
		return "must contain at least one non-empty keyword"
	case "classification_field":
		return fmt.Sprintf("%v is not one of %s", fe.Value(), strings.Join(models.ClassificationFields(), ", "))
	case "tag_value":
		return fmt.Sprintf("invalid value for %s", fe.Param())
	case "necessity", "recurrence":
		return fmt.Sprintf("%v is not a valid %s", fe.Value(), fe.Tag())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// Custom validation functions

// validateRuleKeywords requires at least one keyword that is not blank
func validateRuleKeywords(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.Slice {
		return false
	}
	keywords, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	return len(models.NormalizedKeywords(keywords)) > 0
}

// validateClassificationField accepts only fields a rule may assign
func validateClassificationField(fl validator.FieldLevel) bool {
	return models.IsClassificationField(fl.Field().String())
}

func validateNecessity(fl validator.FieldLevel) bool {
	_, err := models.ParseNecessity(fl.Field().String())
	return err == nil
}

func validateRecurrence(fl validator.FieldLevel) bool {
	_, err := models.ParseRecurrence(fl.Field().String())
	return err == nil
}

// validateRuleTagValues checks enum-valued tags against their closed sets
func validateRuleTagValues(sl validator.StructLevel) {
	input := sl.Current().Interface().(RuleInput)
	for field, value := range input.Tags {
		if !models.IsClassificationField(field) {
			continue
		}
		if err := models.ValidateTagValue(field, value); err != nil {
			sl.ReportError(value, "tags["+field+"]", "Tags", "tag_value", field)
		}
	}
}
