package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/prephub/quiz-service/internal/events"
	"github.com/prephub/quiz-service/internal/models"
	"github.com/prephub/quiz-service/internal/repositories"
	"github.com/prephub/quiz-service/internal/validator"
)

type quizService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher

	// now is swappable so tests can control the session clock.
	now func() time.Time
}

func NewQuizService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) QuizService {
	return &quizService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		now:       time.Now,
	}
}

// ===== SESSION LIFECYCLE =====

func (s *quizService) Start(ctx context.Context, req *StartQuizRequest, userID string) (*SessionResponse, error) {
	s.logger.Info("Starting quiz session", "exam_id", req.ExamID, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, req.ExamID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	if !exam.IsActive {
		return nil, ErrExamInactive
	}

	questionCount, err := s.repo.Exam().CountActiveQuestions(ctx, nil, req.ExamID)
	if err != nil {
		return nil, fmt.Errorf("failed to count exam questions: %w", err)
	}
	if questionCount == 0 {
		return nil, ErrNoActiveQuestions
	}

	session := &models.QuizSession{
		UserID:         userID,
		ExamID:         req.ExamID,
		StartedAt:      s.now(),
		TotalQuestions: int(questionCount),
	}
	if err := s.repo.Session().Create(ctx, nil, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("Quiz session started", "session_id", session.ID, "questions", questionCount)

	return s.buildSessionResponse(ctx, session, exam), nil
}

func (s *quizService) GetSession(ctx context.Context, sessionID uint, userID string) (*SessionResponse, error) {
	session, exam, err := s.loadOwnedSession(ctx, sessionID, userID, "read")
	if err != nil {
		return nil, err
	}
	return s.buildSessionResponse(ctx, session, exam), nil
}

func (s *quizService) ListSessions(ctx context.Context, filters repositories.SessionFilters, userID string) (*SessionListResponse, error) {
	// Non-admins only ever see their own sessions.
	isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("permission check failed: %w", err)
	}
	if !isAdmin {
		filters.UserID = &userID
	}

	sessions, total, err := s.repo.Session().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	responses := make([]*SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, s.buildSessionResponse(ctx, session, session.Exam))
	}

	return &SessionListResponse{
		Sessions: responses,
		Total:    total,
		Page:     pageFromOffset(filters.Offset, filters.Limit),
		Size:     filters.Limit,
	}, nil
}

// ===== ANSWERING =====

func (s *quizService) SubmitAnswer(ctx context.Context, sessionID uint, req *SubmitAnswerRequest, userID string) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	session, exam, err := s.loadOwnedSession(ctx, sessionID, userID, "answer")
	if err != nil {
		return err
	}

	if err := s.ensureAnswerable(session, exam); err != nil {
		return err
	}

	question, err := s.repo.Question().GetByIDWithChoices(ctx, nil, req.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to get question: %w", err)
	}
	if question.ExamID != session.ExamID {
		return ErrQuestionNotInExam
	}

	valid := map[uint]bool{}
	for _, c := range question.Choices {
		valid[c.ID] = true
	}
	for _, id := range req.SelectedChoiceIDs {
		if !valid[id] {
			return ErrChoiceNotInScope
		}
	}

	answer := &models.UserAnswer{
		QuizSessionID: session.ID,
		QuestionID:    question.ID,
		IsCorrect:     gradeAnswer(question, req.SelectedChoiceIDs),
		AnsweredAt:    s.now(),
	}
	if err := answer.SetSelectedIDs(req.SelectedChoiceIDs); err != nil {
		return fmt.Errorf("failed to encode selected choices: %w", err)
	}

	if err := s.repo.Session().UpsertAnswer(ctx, nil, answer); err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}

	return nil
}

// gradeAnswer reports whether the selected choice set exactly matches the
// question's correct choice set. Single and true/false questions reduce to a
// one-element set comparison.
func gradeAnswer(question *models.Question, selected []uint) bool {
	correct := question.CorrectChoiceIDs()
	if len(selected) != len(correct) {
		return false
	}

	correctSet := make(map[uint]bool, len(correct))
	for _, id := range correct {
		correctSet[id] = true
	}

	seen := make(map[uint]bool, len(selected))
	for _, id := range selected {
		if !correctSet[id] || seen[id] {
			return false
		}
		seen[id] = true
	}
	return true
}

// ===== PAUSE / RESUME =====

func (s *quizService) Pause(ctx context.Context, sessionID uint, userID string) (*SessionResponse, error) {
	session, exam, err := s.loadOwnedSession(ctx, sessionID, userID, "pause")
	if err != nil {
		return nil, err
	}

	if session.IsCompleted {
		return nil, ErrSessionCompleted
	}
	if session.IsPaused {
		return nil, ErrSessionPaused
	}
	if session.RemainingSeconds(exam.DurationMinutes, s.now()) == 0 {
		return nil, ErrSessionExpired
	}

	now := s.now()
	session.IsPaused = true
	session.PausedAt = &now

	if err := s.repo.Session().Update(ctx, nil, session); err != nil {
		return nil, fmt.Errorf("failed to pause session: %w", err)
	}

	s.logger.Info("Quiz session paused", "session_id", session.ID)
	return s.buildSessionResponse(ctx, session, exam), nil
}

func (s *quizService) Resume(ctx context.Context, sessionID uint, userID string) (*SessionResponse, error) {
	session, exam, err := s.loadOwnedSession(ctx, sessionID, userID, "resume")
	if err != nil {
		return nil, err
	}

	if session.IsCompleted {
		return nil, ErrSessionCompleted
	}
	if !session.IsPaused || session.PausedAt == nil {
		return nil, ErrSessionNotPaused
	}

	// Fold this pause cycle into the accumulated total.
	session.TotalPausedSeconds += int(s.now().Sub(*session.PausedAt).Seconds())
	session.IsPaused = false
	session.PausedAt = nil

	if err := s.repo.Session().Update(ctx, nil, session); err != nil {
		return nil, fmt.Errorf("failed to resume session: %w", err)
	}

	s.logger.Info("Quiz session resumed", "session_id", session.ID)
	return s.buildSessionResponse(ctx, session, exam), nil
}

func (s *quizService) TimeRemaining(ctx context.Context, sessionID uint, userID string) (int, error) {
	session, exam, err := s.loadOwnedSession(ctx, sessionID, userID, "read")
	if err != nil {
		return 0, err
	}
	return session.RemainingSeconds(exam.DurationMinutes, s.now()), nil
}

// ===== COMPLETION AND RESULTS =====

func (s *quizService) Complete(ctx context.Context, sessionID uint, userID string) (*ResultsResponse, error) {
	session, exam, err := s.loadOwnedSession(ctx, sessionID, userID, "complete")
	if err != nil {
		return nil, err
	}

	if session.IsCompleted {
		return nil, ErrSessionCompleted
	}

	now := s.now()

	// Completing a paused session closes the pause cycle first.
	if session.IsPaused && session.PausedAt != nil {
		session.TotalPausedSeconds += int(now.Sub(*session.PausedAt).Seconds())
		session.IsPaused = false
		session.PausedAt = nil
	}

	activeCount, err := s.repo.Exam().CountActiveQuestions(ctx, nil, session.ExamID)
	if err != nil {
		return nil, fmt.Errorf("failed to count exam questions: %w", err)
	}

	correct, err := s.repo.Session().CountCorrectAnswers(ctx, nil, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count correct answers: %w", err)
	}

	timeTaken := int(now.Sub(session.StartedAt).Seconds()) - session.TotalPausedSeconds
	if timeTaken < 0 {
		timeTaken = 0
	}

	session.IsCompleted = true
	session.CompletedAt = &now
	session.TotalQuestions = int(activeCount)
	session.CorrectAnswers = int(correct)
	session.TimeTakenSeconds = &timeTaken
	if activeCount > 0 {
		session.Score = float64(correct) / float64(activeCount) * 100
	}

	if err := s.repo.Session().Update(ctx, nil, session); err != nil {
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}

	passed := session.Score >= float64(exam.PassingScore)
	s.publishQuizCompleted(ctx, session, passed)

	s.logger.Info("Quiz session completed",
		"session_id", session.ID,
		"score", session.Score,
		"correct", session.CorrectAnswers,
		"total", session.TotalQuestions)

	return s.buildResults(ctx, session, exam, passed)
}

func (s *quizService) Results(ctx context.Context, sessionID uint, userID string) (*ResultsResponse, error) {
	session, exam, err := s.loadOwnedSession(ctx, sessionID, userID, "read")
	if err != nil {
		return nil, err
	}

	if !session.IsCompleted {
		return nil, ErrSessionNotCompleted
	}

	passed := session.Score >= float64(exam.PassingScore)
	return s.buildResults(ctx, session, exam, passed)
}

func (s *quizService) buildResults(ctx context.Context, session *models.QuizSession, exam *models.Exam, passed bool) (*ResultsResponse, error) {
	questions, err := s.repo.Question().ListByExam(ctx, nil, session.ExamID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load exam questions: %w", err)
	}

	answers, err := s.repo.Session().ListAnswers(ctx, nil, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}

	answerByQuestion := make(map[uint]*models.UserAnswer, len(answers))
	for _, a := range answers {
		answerByQuestion[a.QuestionID] = a
	}

	results := make([]QuestionResult, 0, len(questions))
	for _, q := range questions {
		result := QuestionResult{
			QuestionID:       q.ID,
			Text:             q.Text,
			Explanation:      q.Explanation,
			CorrectChoiceIDs: q.CorrectChoiceIDs(),
		}
		if answer, ok := answerByQuestion[q.ID]; ok {
			selected, err := answer.SelectedIDs()
			if err != nil {
				return nil, fmt.Errorf("failed to decode answer for question %d: %w", q.ID, err)
			}
			result.Answered = true
			result.SelectedChoiceIDs = selected
			result.IsCorrect = answer.IsCorrect
		}
		results = append(results, result)
	}

	return &ResultsResponse{
		Session:   session,
		Passed:    passed,
		Questions: results,
	}, nil
}

// ===== HELPERS =====

// ensureAnswerable rejects answers on completed, paused or expired sessions.
func (s *quizService) ensureAnswerable(session *models.QuizSession, exam *models.Exam) error {
	if session.IsCompleted {
		return ErrSessionCompleted
	}
	if session.IsPaused {
		return ErrSessionPaused
	}
	if session.RemainingSeconds(exam.DurationMinutes, s.now()) == 0 {
		return ErrSessionExpired
	}
	return nil
}

// loadOwnedSession fetches the session plus its exam and enforces that the
// caller owns the session or is an admin.
func (s *quizService) loadOwnedSession(ctx context.Context, sessionID uint, userID, action string) (*models.QuizSession, *models.Exam, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	if session.UserID != userID {
		isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
		if err != nil {
			return nil, nil, fmt.Errorf("permission check failed: %w", err)
		}
		if !isAdmin {
			return nil, nil, NewPermissionError(userID, sessionID, "session", action, "not session owner")
		}
	}

	exam := session.Exam
	if exam == nil {
		exam, err = s.repo.Exam().GetByID(ctx, nil, session.ExamID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get session exam: %w", err)
		}
	}

	return session, exam, nil
}

func (s *quizService) buildSessionResponse(ctx context.Context, session *models.QuizSession, exam *models.Exam) *SessionResponse {
	resp := &SessionResponse{QuizSession: session}

	if exam != nil {
		resp.RemainingSeconds = session.RemainingSeconds(exam.DurationMinutes, s.now())
	}

	answers, err := s.repo.Session().ListAnswers(ctx, nil, session.ID)
	if err != nil {
		s.logger.Warn("Failed to count session answers", "session_id", session.ID, "error", err)
	} else {
		resp.AnsweredCount = len(answers)
	}

	return resp
}

func (s *quizService) publishQuizCompleted(ctx context.Context, session *models.QuizSession, passed bool) {
	if s.publisher == nil {
		return
	}

	event := events.NewEvent(events.EventQuizCompleted, events.QuizCompletedEvent{
		SessionID: session.ID,
		UserID:    session.UserID,
		ExamID:    session.ExamID,
		Score:     session.Score,
		Passed:    passed,
	})
	if err := s.publisher.Publish(ctx, events.TopicQuizzes, event); err != nil {
		// Event delivery is best-effort; the session result is already durable.
		s.logger.Error("Failed to publish quiz completed event", "session_id", session.ID, "error", err)
	}
}
