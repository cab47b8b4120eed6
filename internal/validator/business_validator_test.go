package validator

import (
	"testing"

	"github.com/prephub/quiz-service/internal/models"
)

func choiceSet(correct ...bool) []ChoiceRequest {
	choices := make([]ChoiceRequest, len(correct))
	for i, c := range correct {
		choices[i] = ChoiceRequest{Text: string(rune('A' + i)), IsCorrect: c, Order: i}
	}
	return choices
}

func TestValidateQuestionCreate_ChoiceRules(t *testing.T) {
	bv := NewBusinessValidator()

	tests := []struct {
		name    string
		qType   models.QuestionType
		choices []ChoiceRequest
		wantErr bool
	}{
		{"single with one correct", models.QuestionSingle, choiceSet(false, true, false), false},
		{"single with two correct", models.QuestionSingle, choiceSet(true, true), true},
		{"single with none correct", models.QuestionSingle, choiceSet(false, false), true},
		{"multiple with several correct", models.QuestionMultiple, choiceSet(true, false, true), false},
		{"multiple with none correct", models.QuestionMultiple, choiceSet(false, false), true},
		{"true_false valid", models.QuestionTrueFalse, choiceSet(true, false), false},
		{"true_false with three choices", models.QuestionTrueFalse, choiceSet(true, false, false), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &QuestionCreateRequest{
				ExamID:  1,
				Text:    "What is the answer?",
				Type:    tt.qType,
				Choices: tt.choices,
			}
			errs := bv.ValidateQuestionCreate(req)
			if tt.wantErr && len(errs) == 0 {
				t.Error("expected validation errors, got none")
			}
			if !tt.wantErr && len(errs) > 0 {
				t.Errorf("expected no errors, got %v", errs)
			}
		})
	}
}

func TestValidateQuestionCreate_StructRules(t *testing.T) {
	bv := NewBusinessValidator()

	t.Run("rejects unknown question type", func(t *testing.T) {
		req := &QuestionCreateRequest{
			ExamID:  1,
			Text:    "q",
			Type:    models.QuestionType("essay"),
			Choices: choiceSet(true, false),
		}
		if errs := bv.ValidateQuestionCreate(req); len(errs) == 0 {
			t.Error("expected error for unknown question type")
		}
	})

	t.Run("rejects fewer than two choices", func(t *testing.T) {
		req := &QuestionCreateRequest{
			ExamID:  1,
			Text:    "q",
			Type:    models.QuestionSingle,
			Choices: choiceSet(true),
		}
		if errs := bv.ValidateQuestionCreate(req); len(errs) == 0 {
			t.Error("expected error for a single choice")
		}
	})

	t.Run("rejects blank choice text", func(t *testing.T) {
		req := &QuestionCreateRequest{
			ExamID: 1,
			Text:   "q",
			Type:   models.QuestionSingle,
			Choices: []ChoiceRequest{
				{Text: "A", IsCorrect: true},
				{Text: "   "},
			},
		}
		if errs := bv.ValidateQuestionCreate(req); len(errs) == 0 {
			t.Error("expected error for blank choice text")
		}
	})
}

func TestValidateQuestionUpdate(t *testing.T) {
	bv := NewBusinessValidator()
	existing := &models.Question{ID: 1, Type: models.QuestionSingle}

	t.Run("type change without choices rejected", func(t *testing.T) {
		newType := models.QuestionMultiple
		req := &QuestionUpdateRequest{Type: &newType}
		if errs := bv.ValidateQuestionUpdate(req, existing); len(errs) == 0 {
			t.Error("expected error for type change without replacement choices")
		}
	})

	t.Run("type change with matching choices accepted", func(t *testing.T) {
		newType := models.QuestionMultiple
		req := &QuestionUpdateRequest{Type: &newType, Choices: choiceSet(true, true, false)}
		if errs := bv.ValidateQuestionUpdate(req, existing); len(errs) > 0 {
			t.Errorf("expected no errors, got %v", errs)
		}
	})

	t.Run("replacement choices validated against existing type", func(t *testing.T) {
		req := &QuestionUpdateRequest{Choices: choiceSet(true, true)}
		if errs := bv.ValidateQuestionUpdate(req, existing); len(errs) == 0 {
			t.Error("expected error: two correct choices on a single type question")
		}
	})
}

func TestValidateExamCreate(t *testing.T) {
	bv := NewBusinessValidator()

	t.Run("valid exam", func(t *testing.T) {
		req := &ExamCreateRequest{CategoryID: 1, Name: "SAT", DurationMinutes: 60, PassingScore: 60}
		if errs := bv.ValidateExamCreate(req); len(errs) > 0 {
			t.Errorf("expected no errors, got %v", errs)
		}
	})

	t.Run("duration out of range", func(t *testing.T) {
		req := &ExamCreateRequest{CategoryID: 1, Name: "SAT", DurationMinutes: 601}
		if errs := bv.ValidateExamCreate(req); len(errs) == 0 {
			t.Error("expected error for 601 minute duration")
		}
	})

	t.Run("blank name", func(t *testing.T) {
		req := &ExamCreateRequest{CategoryID: 1, Name: "   ", DurationMinutes: 60}
		if errs := bv.ValidateExamCreate(req); len(errs) == 0 {
			t.Error("expected error for blank exam name")
		}
	})
}
