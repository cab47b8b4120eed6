package models

import "time"

type QuestionType string

const (
	QuestionSingle    QuestionType = "single"
	QuestionMultiple  QuestionType = "multiple"
	QuestionTrueFalse QuestionType = "true_false"
)

// ValidQuestionType reports whether t is one of the recognized question types.
func ValidQuestionType(t QuestionType) bool {
	switch t {
	case QuestionSingle, QuestionMultiple, QuestionTrueFalse:
		return true
	}
	return false
}

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// ValidDifficulty reports whether d is one of the recognized difficulty levels.
func ValidDifficulty(d DifficultyLevel) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Question belongs to an exam and optionally a topic. (ExamID, Text) is the
// natural key used by the import pipeline's upsert.
type Question struct {
	ID      uint  `json:"id" gorm:"primaryKey"`
	ExamID  uint  `json:"exam_id" gorm:"not null;index"`
	TopicID *uint `json:"topic_id" gorm:"index"`

	Text        string          `json:"text" gorm:"type:text;not null" validate:"required"`
	Type        QuestionType    `json:"type" gorm:"not null;default:single;index"`
	Difficulty  DifficultyLevel `json:"difficulty" gorm:"default:medium;index"`
	Explanation string          `json:"explanation" gorm:"type:text"` // shown after quiz completion
	Points      int             `json:"points" gorm:"default:1" validate:"min=1"`
	Order       int             `json:"order" gorm:"default:0"`
	IsActive    bool            `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Exam    *Exam    `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
	Topic   *Topic   `json:"topic,omitempty" gorm:"foreignKey:TopicID"`
	Choices []Choice `json:"choices,omitempty" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

func (Question) TableName() string {
	return "questions"
}

// CorrectChoiceIDs returns the IDs of choices flagged correct, in choice order.
func (q *Question) CorrectChoiceIDs() []uint {
	var ids []uint
	for _, c := range q.Choices {
		if c.IsCorrect {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// Choice is one answer option of a question.
type Choice struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	QuestionID uint `json:"question_id" gorm:"not null;index"`

	Text      string `json:"text" gorm:"not null;size:500" validate:"required,max=500"`
	IsCorrect bool   `json:"is_correct" gorm:"default:false"`
	Order     int    `json:"order" gorm:"default:0"`

	// Relations
	Question *Question `json:"-" gorm:"foreignKey:QuestionID"`
}

func (Choice) TableName() string {
	return "choices"
}
