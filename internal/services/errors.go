package services

import (
	"errors"
	"fmt"
)

// Sentinel errors mapped to HTTP statuses by the handler layer.
var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrExamNotFound     = errors.New("exam not found")
	ErrTopicNotFound    = errors.New("topic not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrSessionNotFound  = errors.New("quiz session not found")
	ErrBookmarkNotFound = errors.New("bookmark not found")

	ErrCategoryExists = errors.New("category with this name already exists")
	ErrExamExists     = errors.New("exam with this name already exists in the category")

	ErrExamInactive      = errors.New("exam is not active")
	ErrNoActiveQuestions = errors.New("exam has no active questions")

	ErrUnsupportedImportType = errors.New("unsupported import file type: only .csv and .xlsx are accepted")

	ErrSessionCompleted    = errors.New("quiz session is already completed")
	ErrSessionNotCompleted = errors.New("quiz session is not completed yet")
	ErrSessionNotPaused    = errors.New("quiz session is not paused")
	ErrSessionPaused       = errors.New("quiz session is paused")
	ErrSessionExpired      = errors.New("quiz session time has expired")
	ErrChoiceNotInScope    = errors.New("selected choice does not belong to the question")
	ErrQuestionNotInExam   = errors.New("question does not belong to the session's exam")
)

// PermissionError carries who tried what on which resource.
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsPermissionError reports whether err is a permission failure.
func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}
