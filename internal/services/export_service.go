package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
)

const (
	exportSheet       = "Attempts"
	exportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportPageSize    = 100
)

var exportHeader = []interface{}{
	"Attempt ID", "Student ID", "Started At", "Submitted At", "End Reason",
	"Score", "Max Score", "Answers", "Pending Review",
}

type exportService struct {
	repo     repositories.Repository
	attempts AttemptManager
	logger   *slog.Logger
}

func NewExportService(repo repositories.Repository, attempts AttemptManager, logger *slog.Logger) ExportService {
	return &exportService{repo: repo, attempts: attempts, logger: logger}
}

// ExportAttempts renders every attempt of the quiz into an .xlsx workbook, one
// row per attempt. Authorization is the same as ListAttempts.
func (s *exportService) ExportAttempts(ctx context.Context, quizID uint, grader models.Principal) (*ExportFile, error) {
	s.logger.Info("Exporting attempts", "quiz_id", quizID, "grader_id", grader.UserID)

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	var attempts []*models.Attempt
	filters := repositories.AttemptFilters{Limit: exportPageSize, SortBy: "started_at", SortOrder: "asc"}
	for {
		page, err := s.attempts.ListAttempts(ctx, quizID, filters, grader)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, page.Attempts...)
		if len(page.Attempts) < exportPageSize || int64(len(attempts)) >= page.Total {
			break
		}
		filters.Offset += exportPageSize
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(exportSheet, 1, 1, style)
	}

	maxScore := quiz.TotalPoints()
	for i, attempt := range attempts {
		answers, err := s.repo.Answer().GetByAttempt(ctx, attempt.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load answers of attempt %d: %w", attempt.ID, err)
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := exportRow(attempt, answers, maxScore)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write attempt %d: %w", attempt.ID, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Attempts exported", "quiz_id", quizID, "rows", len(attempts))

	return &ExportFile{
		FileName:    fmt.Sprintf("quiz-%d-attempts.xlsx", quizID),
		ContentType: exportContentType,
		Content:     buf.Bytes(),
	}, nil
}

func exportRow(attempt *models.Attempt, answers []*models.Answer, maxScore float64) []interface{} {
	pending := 0
	for _, answer := range answers {
		if !answer.IsGraded() {
			pending++
		}
	}

	row := []interface{}{
		attempt.ID,
		attempt.StudentID,
		attempt.StartedAt.UTC().Format("2006-01-02 15:04:05"),
		"",
		"",
		"",
		maxScore,
		len(answers),
		pending,
	}
	if attempt.SubmittedAt != nil {
		row[3] = attempt.SubmittedAt.UTC().Format("2006-01-02 15:04:05")
	}
	if attempt.EndReason != nil {
		row[4] = string(*attempt.EndReason)
	}
	if attempt.Score != nil {
		row[5] = *attempt.Score
	}
	return row
}
