package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/prephub/quiz-service/internal/events"
	"github.com/prephub/quiz-service/internal/models"
	"github.com/prephub/quiz-service/internal/repositories"
)

// ===== IN-MEMORY FAKE REPOSITORY =====

type fakeStore struct {
	categories map[uint]*models.Category
	exams      map[uint]*models.Exam
	topics     map[uint]*models.Topic
	questions  map[uint]*models.Question
	choices    map[uint]*models.Choice
	nextID     uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		categories: make(map[uint]*models.Category),
		exams:      make(map[uint]*models.Exam),
		topics:     make(map[uint]*models.Topic),
		questions:  make(map[uint]*models.Question),
		choices:    make(map[uint]*models.Choice),
	}
}

func (s *fakeStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) clone() *fakeStore {
	c := newFakeStore()
	c.nextID = s.nextID
	for k, v := range s.categories {
		cp := *v
		c.categories[k] = &cp
	}
	for k, v := range s.exams {
		cp := *v
		c.exams[k] = &cp
	}
	for k, v := range s.topics {
		cp := *v
		c.topics[k] = &cp
	}
	for k, v := range s.questions {
		cp := *v
		c.questions[k] = &cp
	}
	for k, v := range s.choices {
		cp := *v
		c.choices[k] = &cp
	}
	return c
}

type fakeRepo struct {
	store *fakeStore
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{store: newFakeStore()}
}

func (f *fakeRepo) Category() repositories.CategoryRepository   { return &fakeCategoryRepo{f.store} }
func (f *fakeRepo) Exam() repositories.ExamRepository           { return &fakeExamRepo{f.store} }
func (f *fakeRepo) Topic() repositories.TopicRepository         { return &fakeTopicRepo{f.store} }
func (f *fakeRepo) Question() repositories.QuestionRepository   { return &fakeQuestionRepo{f.store} }
func (f *fakeRepo) Session() repositories.SessionRepository     { return nil }
func (f *fakeRepo) Bookmark() repositories.BookmarkRepository   { return nil }
func (f *fakeRepo) User() repositories.UserRepository           { return nil }
func (f *fakeRepo) Dashboard() repositories.DashboardRepository { return nil }

// WithTransaction gives fn a snapshot copy and adopts it only on success.
func (f *fakeRepo) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	snapshot := f.store.clone()
	txRepo := &fakeRepo{store: snapshot}
	if err := fn(txRepo); err != nil {
		return err
	}
	f.store = snapshot
	return nil
}

func (f *fakeRepo) Ping(ctx context.Context) error { return nil }
func (f *fakeRepo) Close() error                   { return nil }

type fakeCategoryRepo struct{ store *fakeStore }

func (r *fakeCategoryRepo) Create(ctx context.Context, tx *gorm.DB, category *models.Category) error {
	category.ID = r.store.id()
	cp := *category
	r.store.categories[category.ID] = &cp
	return nil
}

func (r *fakeCategoryRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Category, error) {
	if c, ok := r.store.categories[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeCategoryRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*models.Category, error) {
	for _, c := range r.store.categories {
		if c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeCategoryRepo) GetOrCreateByName(ctx context.Context, tx *gorm.DB, name, description string) (*models.Category, error) {
	if existing, err := r.GetByName(ctx, tx, name); err == nil {
		return existing, nil
	}
	category := &models.Category{Name: name, Description: description}
	if err := r.Create(ctx, tx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (r *fakeCategoryRepo) Update(ctx context.Context, tx *gorm.DB, category *models.Category) error {
	cp := *category
	r.store.categories[category.ID] = &cp
	return nil
}

func (r *fakeCategoryRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	delete(r.store.categories, id)
	return nil
}

func (r *fakeCategoryRepo) List(ctx context.Context, tx *gorm.DB) ([]*models.Category, error) {
	var out []*models.Category
	for _, c := range r.store.categories {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

type fakeExamRepo struct{ store *fakeStore }

func (r *fakeExamRepo) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	exam.ID = r.store.id()
	cp := *exam
	r.store.exams[exam.ID] = &cp
	return nil
}

func (r *fakeExamRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	if e, ok := r.store.exams[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeExamRepo) GetByName(ctx context.Context, tx *gorm.DB, categoryID uint, name string) (*models.Exam, error) {
	for _, e := range r.store.exams {
		if e.CategoryID == categoryID && e.Name == name {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeExamRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, exam *models.Exam) (bool, error) {
	if existing, err := r.GetByName(ctx, tx, exam.CategoryID, exam.Name); err == nil {
		*exam = *existing
		return false, nil
	}
	return true, r.Create(ctx, tx, exam)
}

func (r *fakeExamRepo) Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	cp := *exam
	r.store.exams[exam.ID] = &cp
	return nil
}

func (r *fakeExamRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	delete(r.store.exams, id)
	return nil
}

func (r *fakeExamRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	return nil, 0, nil
}

func (r *fakeExamRepo) CountActiveQuestions(ctx context.Context, tx *gorm.DB, examID uint) (int64, error) {
	var n int64
	for _, q := range r.store.questions {
		if q.ExamID == examID && q.IsActive {
			n++
		}
	}
	return n, nil
}

type fakeTopicRepo struct{ store *fakeStore }

func (r *fakeTopicRepo) GetByName(ctx context.Context, tx *gorm.DB, examID uint, name string) (*models.Topic, error) {
	for _, t := range r.store.topics {
		if t.ExamID == examID && t.Name == name {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeTopicRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, topic *models.Topic) (bool, error) {
	if existing, err := r.GetByName(ctx, tx, topic.ExamID, topic.Name); err == nil {
		*topic = *existing
		return false, nil
	}
	topic.ID = r.store.id()
	cp := *topic
	r.store.topics[topic.ID] = &cp
	return true, nil
}

func (r *fakeTopicRepo) Update(ctx context.Context, tx *gorm.DB, topic *models.Topic) error {
	cp := *topic
	r.store.topics[topic.ID] = &cp
	return nil
}

func (r *fakeTopicRepo) ListByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.Topic, error) {
	return nil, nil
}

type fakeQuestionRepo struct{ store *fakeStore }

func (r *fakeQuestionRepo) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	question.ID = r.store.id()
	cp := *question
	r.store.questions[question.ID] = &cp
	return nil
}

func (r *fakeQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	if q, ok := r.store.questions[id]; ok {
		cp := *q
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeQuestionRepo) GetByIDWithChoices(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	q, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	for _, c := range r.store.choices {
		if c.QuestionID == id {
			q.Choices = append(q.Choices, *c)
		}
	}
	return q, nil
}

func (r *fakeQuestionRepo) GetByNaturalKey(ctx context.Context, tx *gorm.DB, examID uint, text string) (*models.Question, error) {
	for _, q := range r.store.questions {
		if q.ExamID == examID && q.Text == text {
			cp := *q
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("question: %w", repositories.ErrNotFound)
}

func (r *fakeQuestionRepo) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	cp := *question
	r.store.questions[question.ID] = &cp
	return nil
}

func (r *fakeQuestionRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	delete(r.store.questions, id)
	return nil
}

func (r *fakeQuestionRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	return nil, 0, nil
}

func (r *fakeQuestionRepo) ListByExam(ctx context.Context, tx *gorm.DB, examID uint, activeOnly bool) ([]*models.Question, error) {
	var out []*models.Question
	for _, q := range r.store.questions {
		if q.ExamID == examID && (!activeOnly || q.IsActive) {
			cp := *q
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeQuestionRepo) ReplaceChoices(ctx context.Context, tx *gorm.DB, questionID uint, choices []models.Choice) error {
	for id, c := range r.store.choices {
		if c.QuestionID == questionID {
			delete(r.store.choices, id)
		}
	}
	for i := range choices {
		choices[i].ID = r.store.id()
		choices[i].QuestionID = questionID
		choices[i].Order = i
		cp := choices[i]
		r.store.choices[cp.ID] = &cp
	}
	return nil
}

// ===== TEST HELPERS =====

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupImporter(t *testing.T) (*Importer, *fakeRepo, *events.MockEventPublisher, string) {
	t.Helper()

	base := t.TempDir()
	inbox := filepath.Join(base, "inbox")
	if err := os.MkdirAll(inbox, 0o755); err != nil {
		t.Fatal(err)
	}

	repo := newFakeRepo()
	publisher := events.NewMockEventPublisher(testLogger())
	im := New(repo, publisher, testLogger(), inbox)
	return im, repo, publisher, inbox
}

func writeInboxFile(t *testing.T, inbox, name, content string) string {
	t.Helper()
	path := filepath.Join(inbox, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (s *fakeStore) choicesFor(questionID uint) []*models.Choice {
	var out []*models.Choice
	for _, c := range s.choices {
		if c.QuestionID == questionID {
			out = append(out, c)
		}
	}
	return out
}

func (s *fakeStore) findQuestion(text string) *models.Question {
	for _, q := range s.questions {
		if q.Text == text {
			return q
		}
	}
	return nil
}

// ===== TESTS =====

func TestImporter_MathSATExample(t *testing.T) {
	im, repo, publisher, inbox := setupImporter(t)

	writeInboxFile(t, inbox, "math.csv",
		"category,exam,question_text,choices,correct_choices,question_type\n"+
			"Math,SAT,What is 2+2?,2|3|4|5,3,single\n")

	results, err := im.ProcessInbox(context.Background())
	if err != nil {
		t.Fatalf("ProcessInbox failed: %v", err)
	}
	if len(results) != 1 || results[0].Failed {
		t.Fatalf("unexpected results: %+v", results)
	}
	if results[0].QuestionsCreated != 1 || results[0].QuestionsUpdated != 0 {
		t.Errorf("created=%d updated=%d, want 1/0", results[0].QuestionsCreated, results[0].QuestionsUpdated)
	}

	store := repo.store
	if len(store.categories) != 1 || len(store.exams) != 1 || len(store.questions) != 1 {
		t.Fatalf("row counts: categories=%d exams=%d questions=%d",
			len(store.categories), len(store.exams), len(store.questions))
	}

	question := store.findQuestion("What is 2+2?")
	if question == nil {
		t.Fatal("question not persisted")
	}
	exam := store.exams[question.ExamID]
	if exam.Name != "SAT" {
		t.Errorf("exam = %q, want SAT", exam.Name)
	}
	if store.categories[exam.CategoryID].Name != "Math" {
		t.Errorf("category = %q, want Math", store.categories[exam.CategoryID].Name)
	}

	choices := store.choicesFor(question.ID)
	if len(choices) != 4 {
		t.Fatalf("got %d choices, want 4", len(choices))
	}
	for _, c := range choices {
		wantCorrect := c.Text == "4"
		if c.IsCorrect != wantCorrect {
			t.Errorf("choice %q correct=%v, want %v", c.Text, c.IsCorrect, wantCorrect)
		}
	}

	// File moved to processed, event published
	if _, err := os.Stat(filepath.Join(filepath.Dir(inbox), "processed", "math.csv")); err != nil {
		t.Errorf("file not in processed dir: %v", err)
	}
	published := publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.EventImportCompleted {
		t.Errorf("unexpected events: %+v", published)
	}
}

func TestImporter_Idempotence(t *testing.T) {
	im, repo, _, inbox := setupImporter(t)

	content := "category,exam,topic,question_text,choices,correct_choices,question_type\n" +
		"Science,Biology,Cells,[What is the powerhouse of the cell?],Nucleus|Mitochondria|Ribosome,2,single\n" +
		"Science,Biology,Cells,Which organelles contain DNA?,Nucleus|Mitochondria|Golgi|Lysosome,1|2,multiple\n"

	writeInboxFile(t, inbox, "bio.csv", content)
	first, err := im.ProcessInbox(context.Background())
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if first[0].QuestionsCreated != 2 {
		t.Fatalf("first run created %d, want 2", first[0].QuestionsCreated)
	}

	questionsAfterFirst := len(repo.store.questions)
	choicesAfterFirst := len(repo.store.choices)

	writeInboxFile(t, inbox, "bio.csv", content)
	second, err := im.ProcessInbox(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if second[0].QuestionsCreated != 0 || second[0].QuestionsUpdated != 2 {
		t.Errorf("second run created=%d updated=%d, want 0/2",
			second[0].QuestionsCreated, second[0].QuestionsUpdated)
	}

	if len(repo.store.questions) != questionsAfterFirst {
		t.Errorf("questions grew from %d to %d on re-import", questionsAfterFirst, len(repo.store.questions))
	}
	if len(repo.store.choices) != choicesAfterFirst {
		t.Errorf("choices grew from %d to %d on re-import", choicesAfterFirst, len(repo.store.choices))
	}
	if len(repo.store.topics) != 1 || len(repo.store.exams) != 1 || len(repo.store.categories) != 1 {
		t.Errorf("catalog rows duplicated: topics=%d exams=%d categories=%d",
			len(repo.store.topics), len(repo.store.exams), len(repo.store.categories))
	}
}

func TestImporter_TextFormCorrectChoices(t *testing.T) {
	im, repo, _, inbox := setupImporter(t)

	writeInboxFile(t, inbox, "multi.csv",
		"exam,question_text,choices,correct_choices,question_type\n"+
			"GRE,Pick B and D,A|B|C|D,B|D,multiple\n")

	results, err := im.ProcessInbox(context.Background())
	if err != nil {
		t.Fatalf("ProcessInbox failed: %v", err)
	}
	if results[0].Failed {
		t.Fatalf("import failed: %+v", results[0].Errors)
	}

	question := repo.store.findQuestion("Pick B and D")
	if question == nil {
		t.Fatal("question not persisted")
	}
	correct := map[string]bool{}
	for _, c := range repo.store.choicesFor(question.ID) {
		if c.IsCorrect {
			correct[c.Text] = true
		}
	}
	if len(correct) != 2 || !correct["B"] || !correct["D"] {
		t.Errorf("correct set = %v, want {B D}", correct)
	}
}

func TestImporter_InvalidRowRollsBackWholeFile(t *testing.T) {
	im, repo, publisher, inbox := setupImporter(t)

	// Second row's correct index is out of range; the valid first row must
	// not persist either.
	writeInboxFile(t, inbox, "broken.csv",
		"exam,question_text,choices,correct_choices\n"+
			"SAT,Valid question?,A|B|C,1\n"+
			"SAT,Broken question?,A|B|C,9\n")

	results, err := im.ProcessInbox(context.Background())
	if err != nil {
		t.Fatalf("ProcessInbox failed: %v", err)
	}
	result := results[0]
	if !result.Failed {
		t.Fatal("expected the file to fail")
	}
	if len(result.Errors) != 1 || result.Errors[0].Kind != UnresolvableCorrectChoice {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if result.Errors[0].Row != 3 {
		t.Errorf("error row = %d, want 3", result.Errors[0].Row)
	}

	if len(repo.store.questions) != 0 || len(repo.store.exams) != 0 || len(repo.store.choices) != 0 {
		t.Errorf("partial writes persisted: questions=%d exams=%d choices=%d",
			len(repo.store.questions), len(repo.store.exams), len(repo.store.choices))
	}

	failedDir := filepath.Join(filepath.Dir(inbox), "failed")
	if _, err := os.Stat(filepath.Join(failedDir, "broken.csv")); err != nil {
		t.Errorf("file not in failed dir: %v", err)
	}
	logBytes, err := os.ReadFile(filepath.Join(failedDir, "broken_errors.txt"))
	if err != nil {
		t.Fatalf("error log missing: %v", err)
	}
	if !strings.Contains(string(logBytes), "row 3") ||
		!strings.Contains(string(logBytes), string(UnresolvableCorrectChoice)) {
		t.Errorf("error log lacks row/kind detail:\n%s", logBytes)
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.EventImportFailed {
		t.Errorf("unexpected events: %+v", published)
	}
}

func TestImporter_BracketsNeverPersisted(t *testing.T) {
	im, repo, _, inbox := setupImporter(t)

	writeInboxFile(t, inbox, "brackets.csv",
		"category,exam,question_text,explanation,question_type,choices,correct_choices\n"+
			"[Computer Science],[AWS, Architect],[Which are compute services, not storage?],[EC2 and Lambda run code, S3 stores objects],multiple,[EC2]|[S3]|[Lambda]|[EBS],1|3\n")

	results, err := im.ProcessInbox(context.Background())
	if err != nil {
		t.Fatalf("ProcessInbox failed: %v", err)
	}
	if results[0].Failed {
		t.Fatalf("import failed: %+v", results[0].Errors)
	}

	for _, c := range repo.store.categories {
		if strings.ContainsAny(c.Name, "[]") {
			t.Errorf("category name has brackets: %q", c.Name)
		}
	}
	for _, e := range repo.store.exams {
		if strings.ContainsAny(e.Name, "[]") {
			t.Errorf("exam name has brackets: %q", e.Name)
		}
		if e.Name != "AWS, Architect" {
			t.Errorf("embedded comma lost: %q", e.Name)
		}
	}
	for _, q := range repo.store.questions {
		if strings.ContainsAny(q.Text, "[]") || strings.ContainsAny(q.Explanation, "[]") {
			t.Errorf("question fields have brackets: %q / %q", q.Text, q.Explanation)
		}
	}
	for _, c := range repo.store.choices {
		if strings.ContainsAny(c.Text, "[]") {
			t.Errorf("choice has brackets: %q", c.Text)
		}
	}
}

func TestImporter_MetadataOverwritePolicy(t *testing.T) {
	im, repo, _, inbox := setupImporter(t)
	ctx := context.Background()

	writeInboxFile(t, inbox, "first.csv",
		"exam,duration_minutes,passing_score,question_text,choices,correct_choices\n"+
			"TOEFL,90,70,Q1?,A|B,1\n")
	if _, err := im.ProcessInbox(ctx); err != nil {
		t.Fatal(err)
	}

	var exam *models.Exam
	for _, e := range repo.store.exams {
		exam = e
	}
	if exam.DurationMinutes != 90 || exam.PassingScore != 70 {
		t.Fatalf("creation metadata not applied: %+v", exam)
	}

	// Empty metadata columns must not clobber existing values.
	writeInboxFile(t, inbox, "second.csv",
		"exam,duration_minutes,passing_score,question_text,choices,correct_choices\n"+
			"TOEFL,,,Q2?,A|B,1\n")
	if _, err := im.ProcessInbox(ctx); err != nil {
		t.Fatal(err)
	}
	exam = repo.store.exams[exam.ID]
	if exam.DurationMinutes != 90 || exam.PassingScore != 70 {
		t.Errorf("empty columns clobbered metadata: %+v", exam)
	}

	// Explicit non-empty values overwrite.
	writeInboxFile(t, inbox, "third.csv",
		"exam,duration_minutes,passing_score,question_text,choices,correct_choices\n"+
			"TOEFL,120,,Q3?,A|B,1\n")
	if _, err := im.ProcessInbox(ctx); err != nil {
		t.Fatal(err)
	}
	exam = repo.store.exams[exam.ID]
	if exam.DurationMinutes != 120 {
		t.Errorf("explicit duration not applied: %d", exam.DurationMinutes)
	}
	if exam.PassingScore != 70 {
		t.Errorf("passing score should be untouched: %d", exam.PassingScore)
	}
}

func TestImporter_ReplacedChoicesNeverMerge(t *testing.T) {
	im, repo, _, inbox := setupImporter(t)
	ctx := context.Background()

	writeInboxFile(t, inbox, "v1.csv",
		"exam,question_text,choices,correct_choices\n"+
			"SAT,Capital of France?,Paris|London|Berlin|Madrid,1\n")
	if _, err := im.ProcessInbox(ctx); err != nil {
		t.Fatal(err)
	}

	writeInboxFile(t, inbox, "v2.csv",
		"exam,question_text,choices,correct_choices\n"+
			"SAT,Capital of France?,Paris|Lyon,1\n")
	if _, err := im.ProcessInbox(ctx); err != nil {
		t.Fatal(err)
	}

	question := repo.store.findQuestion("Capital of France?")
	choices := repo.store.choicesFor(question.ID)
	if len(choices) != 2 {
		t.Fatalf("got %d choices after re-import, want 2", len(choices))
	}
	texts := map[string]bool{}
	for _, c := range choices {
		texts[c.Text] = true
	}
	if !texts["Paris"] || !texts["Lyon"] {
		t.Errorf("choice set = %v, want {Paris Lyon}", texts)
	}
}

func TestImporter_MissingRequiredHeader(t *testing.T) {
	im, repo, _, inbox := setupImporter(t)

	writeInboxFile(t, inbox, "noexam.csv",
		"question_text,choices,correct_choices\nQ?,A|B,1\n")

	results, err := im.ProcessInbox(context.Background())
	if err != nil {
		t.Fatalf("ProcessInbox failed: %v", err)
	}
	if !results[0].Failed {
		t.Fatal("expected failure")
	}
	if results[0].Errors[0].Kind != MissingRequiredColumn {
		t.Errorf("kind = %s, want MissingRequiredColumn", results[0].Errors[0].Kind)
	}
	if len(repo.store.questions) != 0 {
		t.Error("nothing should persist")
	}
}

func TestImporter_AllFailingRowsReported(t *testing.T) {
	im, _, _, inbox := setupImporter(t)

	writeInboxFile(t, inbox, "many.csv",
		"exam,question_text,question_type,choices,correct_choices\n"+
			"SAT,Q1?,essay,A|B,1\n"+
			"SAT,Q2?,single,A,1\n"+
			"SAT,Q3?,single,A|B,7\n")

	results, err := im.ProcessInbox(context.Background())
	if err != nil {
		t.Fatalf("ProcessInbox failed: %v", err)
	}
	result := results[0]
	if len(result.Errors) != 3 {
		t.Fatalf("got %d errors, want 3: %+v", len(result.Errors), result.Errors)
	}
	wantKinds := []ErrorKind{InvalidEnumValue, MalformedChoiceList, UnresolvableCorrectChoice}
	for i, want := range wantKinds {
		if result.Errors[i].Kind != want {
			t.Errorf("error %d kind = %s, want %s", i, result.Errors[i].Kind, want)
		}
	}
}

func TestImporter_TransactionErrorSurfaces(t *testing.T) {
	im, repo, _, inbox := setupImporter(t)

	writeInboxFile(t, inbox, "ok.csv",
		"exam,question_text,choices,correct_choices\nSAT,Q?,A|B,1\n")

	// Wrap the repo so the transaction itself fails.
	im.repo = &failingTxRepo{fakeRepo: repo}

	results, err := im.ProcessInbox(context.Background())
	if err != nil {
		t.Fatalf("ProcessInbox failed: %v", err)
	}
	if !results[0].Failed {
		t.Fatal("expected failure when transaction errors")
	}
	if results[0].QuestionsCreated != 0 {
		t.Error("counts must reset on rollback")
	}
}

type failingTxRepo struct {
	*fakeRepo
}

func (f *failingTxRepo) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return errors.New("connection reset")
}
