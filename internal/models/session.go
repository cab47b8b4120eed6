package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// QuizSession is one attempt at an exam by a user.
type QuizSession struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"not null;index;size:255"`
	ExamID uint   `json:"exam_id" gorm:"not null;index"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	IsCompleted bool       `json:"is_completed" gorm:"default:false"`

	Score            float64 `json:"score" gorm:"default:0"` // percentage of active exam questions
	TotalQuestions   int     `json:"total_questions" gorm:"default:0"`
	CorrectAnswers   int     `json:"correct_answers" gorm:"default:0"`
	TimeTakenSeconds *int    `json:"time_taken_seconds"`

	// Pause bookkeeping. TotalPausedSeconds accumulates across pause cycles
	// and is excluded from elapsed time.
	IsPaused           bool       `json:"is_paused" gorm:"default:false"`
	PausedAt           *time.Time `json:"paused_at"`
	TotalPausedSeconds int        `json:"total_paused_seconds" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Exam    *Exam        `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
	Answers []UserAnswer `json:"answers,omitempty" gorm:"foreignKey:QuizSessionID;constraint:OnDelete:CASCADE"`
}

func (QuizSession) TableName() string {
	return "quiz_sessions"
}

// RemainingSeconds computes the time left on the session clock, net of paused
// periods, floored at zero.
func (s *QuizSession) RemainingSeconds(durationMinutes int, now time.Time) int {
	if s.IsCompleted {
		return 0
	}

	elapsed := now.Sub(s.StartedAt).Seconds()

	pausedSeconds := float64(s.TotalPausedSeconds)
	if s.IsPaused && s.PausedAt != nil {
		pausedSeconds += now.Sub(*s.PausedAt).Seconds()
	}

	remaining := float64(durationMinutes*60) - (elapsed - pausedSeconds)
	if remaining < 0 {
		return 0
	}
	return int(remaining)
}

// UserAnswer records the choices a user selected for one question of a
// session. Unique per (session, question); resubmitting overwrites.
type UserAnswer struct {
	ID            uint `json:"id" gorm:"primaryKey"`
	QuizSessionID uint `json:"quiz_session_id" gorm:"not null;index;uniqueIndex:idx_session_question"`
	QuestionID    uint `json:"question_id" gorm:"not null;index;uniqueIndex:idx_session_question"`

	// Selected choice IDs stored as a JSONB array.
	SelectedChoiceIDs datatypes.JSON `json:"selected_choice_ids" gorm:"type:jsonb"`
	IsCorrect         bool           `json:"is_correct" gorm:"default:false"`
	AnsweredAt        time.Time      `json:"answered_at"`

	// Relations
	QuizSession *QuizSession `json:"-" gorm:"foreignKey:QuizSessionID"`
	Question    *Question    `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
}

func (UserAnswer) TableName() string {
	return "user_answers"
}

// SelectedIDs decodes the stored choice ID array.
func (a *UserAnswer) SelectedIDs() ([]uint, error) {
	if len(a.SelectedChoiceIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	if err := json.Unmarshal(a.SelectedChoiceIDs, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SetSelectedIDs encodes the choice ID array for storage.
func (a *UserAnswer) SetSelectedIDs(ids []uint) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	a.SelectedChoiceIDs = data
	return nil
}

// BookmarkedQuestion marks a question a user saved for later review.
type BookmarkedQuestion struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	UserID     string `json:"user_id" gorm:"not null;size:255;index;uniqueIndex:idx_user_question_bookmark"`
	QuestionID uint   `json:"question_id" gorm:"not null;index;uniqueIndex:idx_user_question_bookmark"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Question *Question `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
}

func (BookmarkedQuestion) TableName() string {
	return "bookmarked_questions"
}
