package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prephub/quiz-service/internal/events"
	"github.com/prephub/quiz-service/internal/importer"
	"github.com/prephub/quiz-service/internal/models"
	"github.com/prephub/quiz-service/internal/repositories"
)

type importService struct {
	repo     repositories.Repository
	logger   *slog.Logger
	imp      *importer.Importer
	inboxDir string
}

func NewImportService(repo repositories.Repository, logger *slog.Logger, publisher events.EventPublisher, inboxDir string) ImportService {
	return &importService{
		repo:     repo,
		logger:   logger,
		imp:      importer.New(repo, publisher, logger, inboxDir),
		inboxDir: inboxDir,
	}
}

// ProcessInbox sweeps the inbox directory and imports every pending file.
// Admin only.
func (s *importService) ProcessInbox(ctx context.Context, userID string) (*ImportRunResponse, error) {
	if err := s.requireAdmin(ctx, userID, "run"); err != nil {
		return nil, err
	}

	startedAt := time.Now()
	s.logger.Info("Import run requested", "user_id", userID, "inbox", s.inboxDir)

	files, err := s.imp.ProcessInbox(ctx)
	if err != nil {
		return nil, fmt.Errorf("import run failed: %w", err)
	}

	return &ImportRunResponse{
		Files:      files,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}, nil
}

// ImportUpload stages an uploaded file into the inbox and imports it
// immediately. Admin only.
func (s *importService) ImportUpload(ctx context.Context, fileName string, data []byte, userID string) (*ImportFileResult, error) {
	if err := s.requireAdmin(ctx, userID, "upload"); err != nil {
		return nil, err
	}

	name := filepath.Base(fileName)
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".csv" && ext != ".xlsx" {
		return nil, ErrUnsupportedImportType
	}

	if err := os.MkdirAll(s.inboxDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create inbox directory: %w", err)
	}

	path := filepath.Join(s.inboxDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}

	s.logger.Info("Staged uploaded import file", "file", name, "bytes", len(data), "user_id", userID)

	result := s.imp.ProcessFile(ctx, path)
	return &result, nil
}

func (s *importService) requireAdmin(ctx context.Context, userID, action string) error {
	isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("permission check failed: %w", err)
	}
	if !isAdmin {
		return NewPermissionError(userID, 0, "import", action, "insufficient role permissions")
	}
	return nil
}
