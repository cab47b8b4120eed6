package models

import "time"

// Category groups exams by subject area (e.g. Math, English, Biology).
type Category struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"uniqueIndex;not null;size:100" validate:"required,max=100"`
	Description string `json:"description" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Exams []Exam `json:"exams,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
}

func (Category) TableName() string {
	return "categories"
}

// Exam is a named question set under a category (e.g. SAT, IELTS).
// Name is unique within its category.
type Exam struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	CategoryID uint `json:"category_id" gorm:"not null;index;uniqueIndex:idx_category_exam_name"`

	Name            string `json:"name" gorm:"not null;size:200;uniqueIndex:idx_category_exam_name" validate:"required,max=200"`
	Description     string `json:"description" gorm:"type:text"`
	DurationMinutes int    `json:"duration_minutes" gorm:"default:60" validate:"min=1,max=600"`
	TotalQuestions  int    `json:"total_questions" gorm:"default:10"`
	PassingScore    int    `json:"passing_score" gorm:"default:60" validate:"min=0,max=100"` // percentage
	IsActive        bool   `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Category  *Category  `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Topics    []Topic    `json:"topics,omitempty" gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE"`
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE"`
}

func (Exam) TableName() string {
	return "exams"
}

// Topic is an optional grouping of questions inside an exam.
type Topic struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	ExamID uint `json:"exam_id" gorm:"not null;index;uniqueIndex:idx_exam_topic_name"`

	Name        string `json:"name" gorm:"not null;size:200;uniqueIndex:idx_exam_topic_name" validate:"required,max=200"`
	Description string `json:"description" gorm:"type:text"`
	Order       int    `json:"order" gorm:"default:0"`

	// Relations
	Exam      *Exam      `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:TopicID"`
}

func (Topic) TableName() string {
	return "topics"
}
