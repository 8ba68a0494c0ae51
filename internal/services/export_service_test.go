package services

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

func TestExportAttempts(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, nil)
	env.clock.Set(quizStart)

	attempt := env.start(t, quiz.ID, student)
	q1 := quiz.Questions[0]
	env.answer(t, attempt.ID, q1.ID, &validator.UpsertAnswerRequest{SelectedOptionIDs: []uint{correctOption(q1)}})
	env.clock.Advance(2 * time.Minute)
	if _, err := env.manager.Attempt().FinalizeAttempt(env.ctx, attempt.ID, nil, student); err != nil {
		t.Fatalf("FinalizeAttempt: %v", err)
	}

	file, err := env.manager.Export().ExportAttempts(env.ctx, quiz.ID, teacher)
	if err != nil {
		t.Fatalf("ExportAttempts: %v", err)
	}
	if file.ContentType != exportContentType {
		t.Errorf("content type = %s", file.ContentType)
	}

	workbook, err := excelize.OpenReader(bytes.NewReader(file.Content))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer workbook.Close()

	rows, err := workbook.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and one attempt row, got %d rows", len(rows))
	}
	if rows[0][0] != "Attempt ID" {
		t.Errorf("unexpected header %v", rows[0])
	}

	row := rows[1]
	if row[1] != student.UserID {
		t.Errorf("student column = %q", row[1])
	}
	if row[4] != "submitted" {
		t.Errorf("end reason column = %q", row[4])
	}
	if row[5] != "5" || row[6] != "10" {
		t.Errorf("score columns = %q / %q, want 5 / 10", row[5], row[6])
	}
}

func TestExportAttempts_Forbidden(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, nil)

	if _, err := env.manager.Export().ExportAttempts(env.ctx, quiz.ID, otherTeacher); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := env.manager.Export().ExportAttempts(env.ctx, 999, teacher); !errors.Is(err, ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}
