package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/prephub/quiz-service/internal/events"
	"github.com/prephub/quiz-service/internal/models"
	"github.com/prephub/quiz-service/internal/repositories"
)

// Importer sweeps an inbox directory for question files, upserts their rows
// with file-level all-or-nothing semantics, and files each input into a
// processed or failed directory. Files are handled one at a time; the
// per-file database transaction is the only isolation boundary.
type Importer struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger

	inboxDir     string
	processedDir string
	failedDir    string
}

// FileResult summarizes the outcome of one imported file.
type FileResult struct {
	FileName         string      `json:"file_name"`
	QuestionsCreated int         `json:"questions_created"`
	QuestionsUpdated int         `json:"questions_updated"`
	ChoicesWritten   int         `json:"choices_written"`
	Errors           []*RowError `json:"errors,omitempty"`
	Failed           bool        `json:"failed"`
}

func New(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, inboxDir string) *Importer {
	return &Importer{
		repo:         repo,
		publisher:    publisher,
		logger:       logger,
		inboxDir:     inboxDir,
		processedDir: filepath.Join(filepath.Dir(inboxDir), "processed"),
		failedDir:    filepath.Join(filepath.Dir(inboxDir), "failed"),
	}
}

// ProcessInbox imports every .csv and .xlsx file currently in the inbox,
// sequentially in name order. Per-file failures are reported in the results,
// not returned as an error.
func (im *Importer) ProcessInbox(ctx context.Context) ([]FileResult, error) {
	for _, dir := range []string{im.inboxDir, im.processedDir, im.failedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	entries, err := os.ReadDir(im.inboxDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".csv", ".xlsx":
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	im.logger.InfoContext(ctx, "Inbox sweep started",
		"inbox", im.inboxDir,
		"files", len(files))

	results := make([]FileResult, 0, len(files))
	for _, name := range files {
		results = append(results, im.ProcessFile(ctx, filepath.Join(im.inboxDir, name)))
	}

	return results, nil
}

// ProcessFile imports one file. On success the file moves to the processed
// directory; on any row error the transaction is rolled back, nothing is
// persisted, and the file moves to the failed directory next to a
// <stem>_errors.txt log.
func (im *Importer) ProcessFile(ctx context.Context, path string) FileResult {
	start := time.Now()
	result := FileResult{FileName: filepath.Base(path)}

	records, errs := im.parseFile(path)
	result.Errors = errs

	if len(errs) == 0 {
		if err := im.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
			for _, parsed := range records {
				created, choiceCount, err := upsertRecord(ctx, txRepo, parsed.record)
				if err != nil {
					return fmt.Errorf("row %d: %w", parsed.row, err)
				}
				if created {
					result.QuestionsCreated++
				} else {
					result.QuestionsUpdated++
				}
				result.ChoicesWritten += choiceCount
			}
			return nil
		}); err != nil {
			result.QuestionsCreated = 0
			result.QuestionsUpdated = 0
			result.ChoicesWritten = 0
			result.Errors = append(result.Errors, &RowError{Row: 0, Kind: "TransactionFailed", Message: err.Error()})
		}
	}

	if len(result.Errors) > 0 {
		result.Failed = true
		im.fileToFailed(ctx, path, result)
		im.publishImportFailed(ctx, result)

		im.logger.WarnContext(ctx, "Import failed",
			"file", result.FileName,
			"errors", len(result.Errors),
			"first_error", result.Errors[0].Error())
		return result
	}

	im.moveFile(ctx, path, im.processedDir)
	im.publishImportCompleted(ctx, result, time.Since(start))

	im.logger.InfoContext(ctx, "Import completed",
		"file", result.FileName,
		"created", result.QuestionsCreated,
		"updated", result.QuestionsUpdated,
		"choices", result.ChoicesWritten,
		"duration", time.Since(start))
	return result
}

// parsedRow pairs a Record with its source line number for error reporting.
type parsedRow struct {
	row    int
	record *Record
}

// parseFile decodes and validates every row up front so validation failures
// never open a transaction. All failing rows are reported, not just the first.
func (im *Importer) parseFile(path string) ([]parsedRow, []*RowError) {
	var header []string
	var rows [][]string
	var err error

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		header, rows, err = decodeExcel(path)
	} else {
		var f *os.File
		f, err = os.Open(path)
		if err == nil {
			header, rows, err = decodeCSV(f)
			f.Close()
		}
	}
	if err != nil {
		return nil, []*RowError{{Row: 0, Kind: "UnreadableFile", Message: err.Error()}}
	}

	cols, headerErr := mapColumns(header)
	if headerErr != nil {
		return nil, []*RowError{headerErr}
	}

	var records []parsedRow
	var errs []*RowError
	for i, fields := range rows {
		rowNum := i + 2 // header is line 1
		rec, rowErr := parseRow(cols, fields, rowNum)
		if rowErr != nil {
			errs = append(errs, rowErr)
			continue
		}
		if rec == nil {
			continue // blank row
		}
		records = append(records, parsedRow{row: rowNum, record: rec})
	}

	return records, errs
}

// upsertRecord applies one record in declared order: category, exam, topic,
// question, choices. Exam/topic metadata overwrites existing rows only when
// the source row carries an explicit non-empty value.
func upsertRecord(ctx context.Context, repo repositories.Repository, rec *Record) (created bool, choiceCount int, err error) {
	category, err := repo.Category().GetOrCreateByName(ctx, nil, rec.Category,
		fmt.Sprintf("Questions for %s exams", rec.Category))
	if err != nil {
		return false, 0, err
	}

	exam := &models.Exam{
		CategoryID:      category.ID,
		Name:            rec.Exam,
		Description:     rec.ExamDescription,
		DurationMinutes: intOrDefault(rec.DurationMinutes, 60),
		TotalQuestions:  intOrDefault(rec.TotalQuestions, 10),
		PassingScore:    intOrDefault(rec.PassingScore, 60),
		IsActive:        true,
	}
	examCreated, err := repo.Exam().GetOrCreate(ctx, nil, exam)
	if err != nil {
		return false, 0, err
	}
	if !examCreated {
		if applyExamMetadata(exam, rec) {
			if err := repo.Exam().Update(ctx, nil, exam); err != nil {
				return false, 0, err
			}
		}
	}

	var topicID *uint
	if rec.Topic != "" {
		topic := &models.Topic{
			ExamID:      exam.ID,
			Name:        rec.Topic,
			Description: rec.TopicDescription,
			Order:       intOrDefault(rec.TopicOrder, 0),
		}
		topicCreated, err := repo.Topic().GetOrCreate(ctx, nil, topic)
		if err != nil {
			return false, 0, err
		}
		if !topicCreated {
			if applyTopicMetadata(topic, rec) {
				if err := repo.Topic().Update(ctx, nil, topic); err != nil {
					return false, 0, err
				}
			}
		}
		topicID = &topic.ID
	}

	question, err := repo.Question().GetByNaturalKey(ctx, nil, exam.ID, rec.QuestionText)
	switch {
	case err == nil:
		question.TopicID = topicID
		question.Type = rec.Type
		question.Difficulty = rec.Difficulty
		question.Explanation = rec.Explanation
		question.Points = rec.Points
		question.Order = rec.Order
		question.IsActive = rec.IsActive
		if err := repo.Question().Update(ctx, nil, question); err != nil {
			return false, 0, err
		}
	case repositories.IsNotFoundError(err):
		created = true
		question = &models.Question{
			ExamID:      exam.ID,
			TopicID:     topicID,
			Text:        rec.QuestionText,
			Type:        rec.Type,
			Difficulty:  rec.Difficulty,
			Explanation: rec.Explanation,
			Points:      rec.Points,
			Order:       rec.Order,
			IsActive:    rec.IsActive,
		}
		if err := repo.Question().Create(ctx, nil, question); err != nil {
			return false, 0, err
		}
	default:
		return false, 0, err
	}

	choices := make([]models.Choice, len(rec.Choices))
	for i, text := range rec.Choices {
		choices[i] = models.Choice{Text: text}
	}
	for _, idx := range rec.CorrectIndexes {
		choices[idx].IsCorrect = true
	}
	if err := repo.Question().ReplaceChoices(ctx, nil, question.ID, choices); err != nil {
		return false, 0, err
	}

	return created, len(choices), nil
}

// applyExamMetadata copies explicitly re-specified metadata onto an existing
// exam. Empty columns never clobber existing values.
func applyExamMetadata(exam *models.Exam, rec *Record) bool {
	changed := false
	if rec.ExamDescription != "" && rec.ExamDescription != exam.Description {
		exam.Description = rec.ExamDescription
		changed = true
	}
	if rec.DurationMinutes != nil && *rec.DurationMinutes != exam.DurationMinutes {
		exam.DurationMinutes = *rec.DurationMinutes
		changed = true
	}
	if rec.TotalQuestions != nil && *rec.TotalQuestions != exam.TotalQuestions {
		exam.TotalQuestions = *rec.TotalQuestions
		changed = true
	}
	if rec.PassingScore != nil && *rec.PassingScore != exam.PassingScore {
		exam.PassingScore = *rec.PassingScore
		changed = true
	}
	return changed
}

func applyTopicMetadata(topic *models.Topic, rec *Record) bool {
	changed := false
	if rec.TopicDescription != "" && rec.TopicDescription != topic.Description {
		topic.Description = rec.TopicDescription
		changed = true
	}
	if rec.TopicOrder != nil && *rec.TopicOrder != topic.Order {
		topic.Order = *rec.TopicOrder
		changed = true
	}
	return changed
}

func intOrDefault(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}

// fileToFailed writes the error log and moves the input beside it.
func (im *Importer) fileToFailed(ctx context.Context, path string, result FileResult) {
	stem := strings.TrimSuffix(result.FileName, filepath.Ext(result.FileName))
	logPath := filepath.Join(im.failedDir, stem+"_errors.txt")

	var b strings.Builder
	fmt.Fprintf(&b, "Errors processing %s:\n\n", result.FileName)
	for _, rowErr := range result.Errors {
		fmt.Fprintf(&b, "%s\n", rowErr.Error())
	}

	if err := os.WriteFile(logPath, []byte(b.String()), 0o644); err != nil {
		im.logger.ErrorContext(ctx, "Failed to write error log",
			"error", err,
			"path", logPath)
	}

	im.moveFile(ctx, path, im.failedDir)
}

func (im *Importer) moveFile(ctx context.Context, path, destDir string) {
	dest := filepath.Join(destDir, filepath.Base(path))
	// A re-run of the same file name replaces the previous copy
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			im.logger.ErrorContext(ctx, "Failed to replace existing file",
				"error", err,
				"path", dest)
		}
	}
	if err := os.Rename(path, dest); err != nil {
		im.logger.ErrorContext(ctx, "Failed to move file",
			"error", err,
			"from", path,
			"to", dest)
	}
}

func (im *Importer) publishImportCompleted(ctx context.Context, result FileResult, took time.Duration) {
	if im.publisher == nil {
		return
	}
	event := events.NewEvent(events.EventImportCompleted, events.ImportCompletedEvent{
		FileName:          result.FileName,
		QuestionsImported: result.QuestionsCreated,
		QuestionsUpdated:  result.QuestionsUpdated,
		DurationMs:        took.Milliseconds(),
	})
	if err := im.publisher.Publish(ctx, events.TopicImports, event); err != nil {
		im.logger.ErrorContext(ctx, "Failed to publish import event", "error", err)
	}
}

func (im *Importer) publishImportFailed(ctx context.Context, result FileResult) {
	if im.publisher == nil {
		return
	}
	event := events.NewEvent(events.EventImportFailed, events.ImportFailedEvent{
		FileName:   result.FileName,
		ErrorCount: len(result.Errors),
		FirstError: result.Errors[0].Error(),
	})
	if err := im.publisher.Publish(ctx, events.TopicImports, event); err != nil {
		im.logger.ErrorContext(ctx, "Failed to publish import event", "error", err)
	}
}
