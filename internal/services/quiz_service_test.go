package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/prephub/quiz-service/internal/events"
	"github.com/prephub/quiz-service/internal/models"
	"github.com/prephub/quiz-service/internal/repositories"
	"github.com/prephub/quiz-service/internal/validator"
)

// ===== IN-MEMORY REPOSITORY STUBS =====

type quizStubStore struct {
	exams         map[uint]*models.Exam
	questions     map[uint]*models.Question
	sessions      map[uint]*models.QuizSession
	answers       map[uint]map[uint]*models.UserAnswer // sessionID -> questionID
	admins        map[string]bool
	nextSessionID uint
}

func newQuizStubStore() *quizStubStore {
	return &quizStubStore{
		exams:     map[uint]*models.Exam{},
		questions: map[uint]*models.Question{},
		sessions:  map[uint]*models.QuizSession{},
		answers:   map[uint]map[uint]*models.UserAnswer{},
		admins:    map[string]bool{},
	}
}

type quizStubRepo struct {
	store *quizStubStore
}

func (r *quizStubRepo) Category() repositories.CategoryRepository   { return nil }
func (r *quizStubRepo) Exam() repositories.ExamRepository           { return &stubExamRepo{r.store} }
func (r *quizStubRepo) Topic() repositories.TopicRepository         { return nil }
func (r *quizStubRepo) Question() repositories.QuestionRepository   { return &stubQuestionRepo{r.store} }
func (r *quizStubRepo) Session() repositories.SessionRepository     { return &stubSessionRepo{r.store} }
func (r *quizStubRepo) Bookmark() repositories.BookmarkRepository   { return nil }
func (r *quizStubRepo) User() repositories.UserRepository           { return &stubUserRepo{r.store} }
func (r *quizStubRepo) Dashboard() repositories.DashboardRepository { return nil }
func (r *quizStubRepo) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}
func (r *quizStubRepo) Ping(ctx context.Context) error { return nil }
func (r *quizStubRepo) Close() error                   { return nil }

type stubExamRepo struct{ store *quizStubStore }

func (r *stubExamRepo) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	r.store.exams[exam.ID] = exam
	return nil
}

func (r *stubExamRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	exam, ok := r.store.exams[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return exam, nil
}

func (r *stubExamRepo) GetByName(ctx context.Context, tx *gorm.DB, categoryID uint, name string) (*models.Exam, error) {
	return nil, repositories.ErrNotFound
}

func (r *stubExamRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, exam *models.Exam) (bool, error) {
	return false, errors.New("not used")
}

func (r *stubExamRepo) Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error { return nil }
func (r *stubExamRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error           { return nil }

func (r *stubExamRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	return nil, 0, nil
}

func (r *stubExamRepo) CountActiveQuestions(ctx context.Context, tx *gorm.DB, examID uint) (int64, error) {
	var count int64
	for _, q := range r.store.questions {
		if q.ExamID == examID && q.IsActive {
			count++
		}
	}
	return count, nil
}

type stubQuestionRepo struct{ store *quizStubStore }

func (r *stubQuestionRepo) Create(ctx context.Context, tx *gorm.DB, q *models.Question) error {
	r.store.questions[q.ID] = q
	return nil
}

func (r *stubQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	return r.GetByIDWithChoices(ctx, tx, id)
}

func (r *stubQuestionRepo) GetByIDWithChoices(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	q, ok := r.store.questions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return q, nil
}

func (r *stubQuestionRepo) GetByNaturalKey(ctx context.Context, tx *gorm.DB, examID uint, text string) (*models.Question, error) {
	return nil, repositories.ErrNotFound
}

func (r *stubQuestionRepo) Update(ctx context.Context, tx *gorm.DB, q *models.Question) error {
	return nil
}
func (r *stubQuestionRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error { return nil }

func (r *stubQuestionRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	return nil, 0, nil
}

func (r *stubQuestionRepo) ListByExam(ctx context.Context, tx *gorm.DB, examID uint, activeOnly bool) ([]*models.Question, error) {
	var out []*models.Question
	for _, q := range r.store.questions {
		if q.ExamID != examID {
			continue
		}
		if activeOnly && !q.IsActive {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (r *stubQuestionRepo) ReplaceChoices(ctx context.Context, tx *gorm.DB, questionID uint, choices []models.Choice) error {
	return nil
}

type stubSessionRepo struct{ store *quizStubStore }

func (r *stubSessionRepo) Create(ctx context.Context, tx *gorm.DB, session *models.QuizSession) error {
	r.store.nextSessionID++
	session.ID = r.store.nextSessionID
	r.store.sessions[session.ID] = session
	return nil
}

func (r *stubSessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizSession, error) {
	session, ok := r.store.sessions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return session, nil
}

func (r *stubSessionRepo) GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizSession, error) {
	return r.GetByID(ctx, tx, id)
}

func (r *stubSessionRepo) Update(ctx context.Context, tx *gorm.DB, session *models.QuizSession) error {
	r.store.sessions[session.ID] = session
	return nil
}

func (r *stubSessionRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.SessionFilters) ([]*models.QuizSession, int64, error) {
	var out []*models.QuizSession
	for _, s := range r.store.sessions {
		if filters.UserID != nil && s.UserID != *filters.UserID {
			continue
		}
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

func (r *stubSessionRepo) UpsertAnswer(ctx context.Context, tx *gorm.DB, answer *models.UserAnswer) error {
	byQuestion, ok := r.store.answers[answer.QuizSessionID]
	if !ok {
		byQuestion = map[uint]*models.UserAnswer{}
		r.store.answers[answer.QuizSessionID] = byQuestion
	}
	byQuestion[answer.QuestionID] = answer
	return nil
}

func (r *stubSessionRepo) ListAnswers(ctx context.Context, tx *gorm.DB, sessionID uint) ([]*models.UserAnswer, error) {
	var out []*models.UserAnswer
	for _, a := range r.store.answers[sessionID] {
		out = append(out, a)
	}
	return out, nil
}

func (r *stubSessionRepo) CountCorrectAnswers(ctx context.Context, tx *gorm.DB, sessionID uint) (int64, error) {
	var count int64
	for _, a := range r.store.answers[sessionID] {
		if a.IsCorrect {
			count++
		}
	}
	return count, nil
}

type stubUserRepo struct{ store *quizStubStore }

func (r *stubUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id}, nil
}

func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, repositories.ErrNotFound
}

func (r *stubUserRepo) ExistsByID(ctx context.Context, id string) (bool, error) { return true, nil }

func (r *stubUserRepo) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	if role == models.RoleAdmin {
		return r.store.admins[id], nil
	}
	return true, nil
}

func (r *stubUserRepo) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	return nil, 0, nil
}

// ===== FIXTURE =====

func newQuizFixture(t *testing.T) (*quizService, *quizStubStore, *events.MockEventPublisher) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelError}))
	store := newQuizStubStore()
	publisher := events.NewMockEventPublisher(logger)

	svc := &quizService{
		repo:      &quizStubRepo{store},
		logger:    logger,
		validator: validator.New(),
		publisher: publisher,
		now:       time.Now,
	}

	// One exam with two questions: q1 single (choice 11 correct), q2 multiple
	// (choices 21 and 23 correct).
	store.exams[1] = &models.Exam{
		ID:              1,
		CategoryID:      1,
		Name:            "SAT",
		DurationMinutes: 60,
		PassingScore:    60,
		IsActive:        true,
	}
	store.questions[1] = &models.Question{
		ID: 1, ExamID: 1, Text: "What is 2 + 2?", Type: models.QuestionSingle, IsActive: true,
		Choices: []models.Choice{
			{ID: 10, QuestionID: 1, Text: "3"},
			{ID: 11, QuestionID: 1, Text: "4", IsCorrect: true},
			{ID: 12, QuestionID: 1, Text: "5"},
		},
	}
	store.questions[2] = &models.Question{
		ID: 2, ExamID: 1, Text: "Select the even numbers", Type: models.QuestionMultiple, IsActive: true,
		Choices: []models.Choice{
			{ID: 21, QuestionID: 2, Text: "2", IsCorrect: true},
			{ID: 22, QuestionID: 2, Text: "3"},
			{ID: 23, QuestionID: 2, Text: "4", IsCorrect: true},
		},
	}

	return svc, store, publisher
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

// ===== TESTS =====

func TestQuizService_Start(t *testing.T) {
	svc, store, _ := newQuizFixture(t)
	ctx := context.Background()

	t.Run("creates session with active question count", func(t *testing.T) {
		resp, err := svc.Start(ctx, &StartQuizRequest{ExamID: 1}, "student-1")
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if resp.TotalQuestions != 2 {
			t.Errorf("expected 2 questions, got %d", resp.TotalQuestions)
		}
		if resp.RemainingSeconds <= 0 || resp.RemainingSeconds > 3600 {
			t.Errorf("unexpected remaining seconds %d", resp.RemainingSeconds)
		}
	})

	t.Run("rejects inactive exam", func(t *testing.T) {
		store.exams[1].IsActive = false
		defer func() { store.exams[1].IsActive = true }()

		_, err := svc.Start(ctx, &StartQuizRequest{ExamID: 1}, "student-1")
		if !errors.Is(err, ErrExamInactive) {
			t.Errorf("expected ErrExamInactive, got %v", err)
		}
	})

	t.Run("rejects exam without active questions", func(t *testing.T) {
		store.questions[1].IsActive = false
		store.questions[2].IsActive = false
		defer func() {
			store.questions[1].IsActive = true
			store.questions[2].IsActive = true
		}()

		_, err := svc.Start(ctx, &StartQuizRequest{ExamID: 1}, "student-1")
		if !errors.Is(err, ErrNoActiveQuestions) {
			t.Errorf("expected ErrNoActiveQuestions, got %v", err)
		}
	})

	t.Run("rejects unknown exam", func(t *testing.T) {
		_, err := svc.Start(ctx, &StartQuizRequest{ExamID: 99}, "student-1")
		if !errors.Is(err, ErrExamNotFound) {
			t.Errorf("expected ErrExamNotFound, got %v", err)
		}
	})
}

func TestQuizService_SubmitAnswer(t *testing.T) {
	svc, store, _ := newQuizFixture(t)
	ctx := context.Background()

	session, err := svc.Start(ctx, &StartQuizRequest{ExamID: 1}, "student-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	t.Run("grades single choice", func(t *testing.T) {
		err := svc.SubmitAnswer(ctx, session.ID, &SubmitAnswerRequest{QuestionID: 1, SelectedChoiceIDs: []uint{11}}, "student-1")
		if err != nil {
			t.Fatalf("SubmitAnswer failed: %v", err)
		}
		if !store.answers[session.ID][1].IsCorrect {
			t.Error("expected answer to be graded correct")
		}
	})

	t.Run("resubmitting overwrites the previous answer", func(t *testing.T) {
		err := svc.SubmitAnswer(ctx, session.ID, &SubmitAnswerRequest{QuestionID: 1, SelectedChoiceIDs: []uint{10}}, "student-1")
		if err != nil {
			t.Fatalf("SubmitAnswer failed: %v", err)
		}
		if store.answers[session.ID][1].IsCorrect {
			t.Error("expected overwritten answer to be graded incorrect")
		}
		if len(store.answers[session.ID]) != 1 {
			t.Errorf("expected 1 answer for question, got %d", len(store.answers[session.ID]))
		}
	})

	t.Run("multiple choice requires exact set match", func(t *testing.T) {
		err := svc.SubmitAnswer(ctx, session.ID, &SubmitAnswerRequest{QuestionID: 2, SelectedChoiceIDs: []uint{21}}, "student-1")
		if err != nil {
			t.Fatalf("SubmitAnswer failed: %v", err)
		}
		if store.answers[session.ID][2].IsCorrect {
			t.Error("partial selection must not grade correct")
		}

		err = svc.SubmitAnswer(ctx, session.ID, &SubmitAnswerRequest{QuestionID: 2, SelectedChoiceIDs: []uint{23, 21}}, "student-1")
		if err != nil {
			t.Fatalf("SubmitAnswer failed: %v", err)
		}
		if !store.answers[session.ID][2].IsCorrect {
			t.Error("full selection in any order must grade correct")
		}
	})

	t.Run("rejects choices from other questions", func(t *testing.T) {
		err := svc.SubmitAnswer(ctx, session.ID, &SubmitAnswerRequest{QuestionID: 1, SelectedChoiceIDs: []uint{21}}, "student-1")
		if !errors.Is(err, ErrChoiceNotInScope) {
			t.Errorf("expected ErrChoiceNotInScope, got %v", err)
		}
	})

	t.Run("rejects questions outside the session exam", func(t *testing.T) {
		store.questions[3] = &models.Question{
			ID: 3, ExamID: 2, Text: "Other exam", Type: models.QuestionSingle, IsActive: true,
			Choices: []models.Choice{{ID: 31, QuestionID: 3, Text: "x", IsCorrect: true}},
		}
		err := svc.SubmitAnswer(ctx, session.ID, &SubmitAnswerRequest{QuestionID: 3, SelectedChoiceIDs: []uint{31}}, "student-1")
		if !errors.Is(err, ErrQuestionNotInExam) {
			t.Errorf("expected ErrQuestionNotInExam, got %v", err)
		}
	})

	t.Run("rejects answers from non-owners", func(t *testing.T) {
		err := svc.SubmitAnswer(ctx, session.ID, &SubmitAnswerRequest{QuestionID: 1, SelectedChoiceIDs: []uint{11}}, "student-2")
		if !IsPermissionError(err) {
			t.Errorf("expected PermissionError, got %v", err)
		}
	})

	t.Run("rejects answers on expired sessions", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { svc.now = time.Now }()

		err := svc.SubmitAnswer(ctx, session.ID, &SubmitAnswerRequest{QuestionID: 1, SelectedChoiceIDs: []uint{11}}, "student-1")
		if !errors.Is(err, ErrSessionExpired) {
			t.Errorf("expected ErrSessionExpired, got %v", err)
		}
	})
}

func TestQuizService_PauseResume(t *testing.T) {
	svc, _, _ := newQuizFixture(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := base
	svc.now = func() time.Time { return clock }

	session, err := svc.Start(ctx, &StartQuizRequest{ExamID: 1}, "student-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// 10 minutes in, pause for 5 minutes: the pause must not consume clock.
	clock = base.Add(10 * time.Minute)
	if _, err := svc.Pause(ctx, session.ID, "student-1"); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}

	if _, err := svc.Pause(ctx, session.ID, "student-1"); !errors.Is(err, ErrSessionPaused) {
		t.Errorf("expected ErrSessionPaused on double pause, got %v", err)
	}

	if err := svc.SubmitAnswer(ctx, session.ID, &SubmitAnswerRequest{QuestionID: 1, SelectedChoiceIDs: []uint{11}}, "student-1"); !errors.Is(err, ErrSessionPaused) {
		t.Errorf("expected ErrSessionPaused on answer while paused, got %v", err)
	}

	clock = base.Add(15 * time.Minute)
	resumed, err := svc.Resume(ctx, session.ID, "student-1")
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if resumed.TotalPausedSeconds != 300 {
		t.Errorf("expected 300 paused seconds, got %d", resumed.TotalPausedSeconds)
	}

	// 15 real minutes elapsed minus 5 paused = 10 minutes consumed of 60.
	remaining, err := svc.TimeRemaining(ctx, session.ID, "student-1")
	if err != nil {
		t.Fatalf("TimeRemaining failed: %v", err)
	}
	if remaining != 50*60 {
		t.Errorf("expected 3000 seconds remaining, got %d", remaining)
	}

	if _, err := svc.Resume(ctx, session.ID, "student-1"); !errors.Is(err, ErrSessionNotPaused) {
		t.Errorf("expected ErrSessionNotPaused on double resume, got %v", err)
	}
}

func TestQuizService_Complete(t *testing.T) {
	svc, _, publisher := newQuizFixture(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := base
	svc.now = func() time.Time { return clock }

	session, err := svc.Start(ctx, &StartQuizRequest{ExamID: 1}, "student-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := svc.SubmitAnswer(ctx, session.ID, &SubmitAnswerRequest{QuestionID: 1, SelectedChoiceIDs: []uint{11}}, "student-1"); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if err := svc.SubmitAnswer(ctx, session.ID, &SubmitAnswerRequest{QuestionID: 2, SelectedChoiceIDs: []uint{22}}, "student-1"); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	clock = base.Add(20 * time.Minute)
	results, err := svc.Complete(ctx, session.ID, "student-1")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if results.Session.Score != 50 {
		t.Errorf("expected score 50, got %v", results.Session.Score)
	}
	if results.Passed {
		t.Error("50%% must not pass a 60%% threshold")
	}
	if results.Session.TimeTakenSeconds == nil || *results.Session.TimeTakenSeconds != 1200 {
		t.Errorf("expected 1200 seconds taken, got %v", results.Session.TimeTakenSeconds)
	}
	if len(results.Questions) != 2 {
		t.Fatalf("expected 2 question results, got %d", len(results.Questions))
	}

	for _, qr := range results.Questions {
		if !qr.Answered {
			t.Errorf("question %d should be marked answered", qr.QuestionID)
		}
		if qr.QuestionID == 1 && !qr.IsCorrect {
			t.Error("question 1 should be correct")
		}
		if qr.QuestionID == 2 && qr.IsCorrect {
			t.Error("question 2 should be incorrect")
		}
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(published))
	}
	if published[0].Type != events.EventQuizCompleted {
		t.Errorf("expected %s event, got %s", events.EventQuizCompleted, published[0].Type)
	}

	t.Run("double completion rejected", func(t *testing.T) {
		if _, err := svc.Complete(ctx, session.ID, "student-1"); !errors.Is(err, ErrSessionCompleted) {
			t.Errorf("expected ErrSessionCompleted, got %v", err)
		}
	})

	t.Run("results readable after completion", func(t *testing.T) {
		again, err := svc.Results(ctx, session.ID, "student-1")
		if err != nil {
			t.Fatalf("Results failed: %v", err)
		}
		if again.Session.Score != 50 {
			t.Errorf("expected score 50, got %v", again.Session.Score)
		}
	})
}

func TestQuizService_ResultsBeforeCompletion(t *testing.T) {
	svc, _, _ := newQuizFixture(t)
	ctx := context.Background()

	session, err := svc.Start(ctx, &StartQuizRequest{ExamID: 1}, "student-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := svc.Results(ctx, session.ID, "student-1"); !errors.Is(err, ErrSessionNotCompleted) {
		t.Errorf("expected ErrSessionNotCompleted, got %v", err)
	}
}

func TestQuizService_AdminCanReadOtherSessions(t *testing.T) {
	svc, store, _ := newQuizFixture(t)
	ctx := context.Background()
	store.admins["admin-1"] = true

	session, err := svc.Start(ctx, &StartQuizRequest{ExamID: 1}, "student-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := svc.GetSession(ctx, session.ID, "admin-1"); err != nil {
		t.Errorf("admin read failed: %v", err)
	}
	if _, err := svc.GetSession(ctx, session.ID, "student-2"); !IsPermissionError(err) {
		t.Errorf("expected PermissionError for stranger, got %v", err)
	}
}

func TestGradeAnswer(t *testing.T) {
	question := &models.Question{
		Type: models.QuestionMultiple,
		Choices: []models.Choice{
			{ID: 1, IsCorrect: true},
			{ID: 2},
			{ID: 3, IsCorrect: true},
		},
	}

	tests := []struct {
		name     string
		selected []uint
		want     bool
	}{
		{"exact match", []uint{1, 3}, true},
		{"order independent", []uint{3, 1}, true},
		{"partial", []uint{1}, false},
		{"superset", []uint{1, 2, 3}, false},
		{"wrong choice", []uint{2}, false},
		{"duplicate ids", []uint{1, 1}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gradeAnswer(question, tt.selected); got != tt.want {
				t.Errorf("gradeAnswer(%v) = %v, want %v", tt.selected, got, tt.want)
			}
		})
	}
}
