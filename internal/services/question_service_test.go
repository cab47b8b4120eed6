package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prephub/quiz-service/internal/validator"
)

func newQuestionFixture(t *testing.T) (*questionService, *quizStubStore) {
	t.Helper()

	_, store, _ := newQuizFixture(t)
	logger := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelError}))

	svc := &questionService{
		repo:      &quizStubRepo{store},
		logger:    logger,
		validator: validator.New(),
	}
	return svc, store
}

func TestQuestionService_ListExamQuestions(t *testing.T) {
	svc, store := newQuestionFixture(t)
	ctx := context.Background()
	store.admins["admin-1"] = true

	t.Run("students never see the answer key", func(t *testing.T) {
		resp, err := svc.ListExamQuestions(ctx, 1, "student-1")
		if err != nil {
			t.Fatalf("ListExamQuestions failed: %v", err)
		}
		if resp.Total != 2 {
			t.Fatalf("expected 2 questions, got %d", resp.Total)
		}
		for _, q := range resp.Questions {
			if len(q.Choices) == 0 {
				t.Errorf("question %d has no choices", q.ID)
			}
			for _, c := range q.Choices {
				if c.IsCorrect != nil {
					t.Errorf("question %d choice %d leaked is_correct", q.ID, c.ID)
				}
			}
		}
	})

	t.Run("admins see correctness flags", func(t *testing.T) {
		resp, err := svc.ListExamQuestions(ctx, 1, "admin-1")
		if err != nil {
			t.Fatalf("ListExamQuestions failed: %v", err)
		}
		var correct int
		for _, q := range resp.Questions {
			for _, c := range q.Choices {
				if c.IsCorrect == nil {
					t.Fatalf("question %d choice %d missing is_correct for admin", q.ID, c.ID)
				}
				if *c.IsCorrect {
					correct++
				}
			}
		}
		if correct != 3 {
			t.Errorf("expected 3 correct choices across the exam, got %d", correct)
		}
	})

	t.Run("inactive questions are excluded", func(t *testing.T) {
		store.questions[2].IsActive = false
		defer func() { store.questions[2].IsActive = true }()

		resp, err := svc.ListExamQuestions(ctx, 1, "student-1")
		if err != nil {
			t.Fatalf("ListExamQuestions failed: %v", err)
		}
		if resp.Total != 1 {
			t.Errorf("expected 1 active question, got %d", resp.Total)
		}
	})

	t.Run("unknown exam", func(t *testing.T) {
		_, err := svc.ListExamQuestions(ctx, 99, "student-1")
		if !errors.Is(err, ErrExamNotFound) {
			t.Errorf("expected ErrExamNotFound, got %v", err)
		}
	})
}
