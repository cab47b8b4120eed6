package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/prephub/quiz-service/internal/models"
)

// BusinessValidator enforces the cross-field rules that struct tags cannot
// express, on top of the tag-level checks.
type BusinessValidator struct {
	validate *validator.Validate
}

func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate runs tag-level validation on any request struct.
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateQuestionCreate checks a new question and its choice set.
func (bv *BusinessValidator) ValidateQuestionCreate(req *QuestionCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	errors = append(errors, bv.validateChoiceRules(req.Type, req.Choices)...)

	return errors
}

// ValidateQuestionUpdate checks a partial update against the stored question.
func (bv *BusinessValidator) ValidateQuestionUpdate(req *QuestionUpdateRequest, existing *models.Question) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	// When choices are replaced, the correct-answer constraints apply against
	// the effective question type after the update.
	if req.Choices != nil {
		qType := existing.Type
		if req.Type != nil {
			qType = *req.Type
		}
		errors = append(errors, bv.validateChoiceRules(qType, req.Choices)...)
	} else if req.Type != nil && *req.Type != existing.Type {
		errors = append(errors, ValidationError{
			Field:   "type",
			Message: "cannot change question type without supplying replacement choices",
			Value:   *req.Type,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateExamCreate checks a new exam definition.
func (bv *BusinessValidator) ValidateExamCreate(req *ExamCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if strings.TrimSpace(req.Name) == "" {
		errors = append(errors, ValidationError{
			Field:   "name",
			Message: "cannot be blank",
			Value:   req.Name,
			Rule:    "business_logic",
		})
	}

	return errors
}

// validateChoiceRules enforces the correct-answer shape for each question type:
// single and true_false questions carry exactly one correct choice, multiple
// questions carry at least one, and true_false questions carry exactly two
// choices overall.
func (bv *BusinessValidator) validateChoiceRules(qType models.QuestionType, choices []ChoiceRequest) ValidationErrors {
	var errors ValidationErrors

	correct := 0
	for i, c := range choices {
		if strings.TrimSpace(c.Text) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("choices[%d].text", i),
				Message: "cannot be blank",
				Value:   c.Text,
				Rule:    "business_logic",
			})
		}
		if c.IsCorrect {
			correct++
		}
	}

	switch qType {
	case models.QuestionSingle:
		if correct != 1 {
			errors = append(errors, ValidationError{
				Field:   "choices",
				Message: "single choice questions must have exactly one correct choice",
				Value:   correct,
				Rule:    "business_logic",
			})
		}
	case models.QuestionTrueFalse:
		if len(choices) != 2 {
			errors = append(errors, ValidationError{
				Field:   "choices",
				Message: "true/false questions must have exactly two choices",
				Value:   len(choices),
				Rule:    "business_logic",
			})
		}
		if correct != 1 {
			errors = append(errors, ValidationError{
				Field:   "choices",
				Message: "true/false questions must have exactly one correct choice",
				Value:   correct,
				Rule:    "business_logic",
			})
		}
	case models.QuestionMultiple:
		if correct < 1 {
			errors = append(errors, ValidationError{
				Field:   "choices",
				Message: "multiple choice questions must have at least one correct choice",
				Value:   correct,
				Rule:    "business_logic",
			})
		}
	}

	return errors
}

// registerBusinessRules wires the custom tag validators the request DTOs use.
func (bv *BusinessValidator) registerBusinessRules() {
	// duration in minutes, capped at 10 hours
	bv.validate.RegisterValidation("exam_duration", func(fl validator.FieldLevel) bool {
		duration := fl.Field().Int()
		return duration >= 1 && duration <= 600
	})

	bv.validate.RegisterValidation("passing_score", func(fl validator.FieldLevel) bool {
		score := fl.Field().Int()
		return score >= 0 && score <= 100
	})

	bv.validate.RegisterValidation("points_range", func(fl validator.FieldLevel) bool {
		points := fl.Field().Int()
		return points >= 1 && points <= 100
	})

	bv.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return models.ValidQuestionType(models.QuestionType(fl.Field().String()))
	})

	bv.validate.RegisterValidation("difficulty_level", func(fl validator.FieldLevel) bool {
		return models.ValidDifficulty(models.DifficultyLevel(fl.Field().String()))
	})
}
