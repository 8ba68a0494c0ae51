package services

import (
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

func TestUpsertAnswer_ReplacesPreviousAnswer(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, nil)
	env.clock.Set(quizStart)

	attempt := env.start(t, quiz.ID, student)
	q1 := quiz.Questions[0]

	first := env.answer(t, attempt.ID, q1.ID, &validator.UpsertAnswerRequest{SelectedOptionIDs: []uint{wrongOption(q1)}})
	env.clock.Advance(time.Minute)
	second := env.answer(t, attempt.ID, q1.ID, &validator.UpsertAnswerRequest{SelectedOptionIDs: []uint{correctOption(q1)}})

	if first.ID != second.ID {
		t.Errorf("expected the same answer row, got %d and %d", first.ID, second.ID)
	}

	answers, err := env.repo.Answer().GetByAttempt(env.ctx, attempt.ID)
	if err != nil {
		t.Fatalf("GetByAttempt: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("expected a single answer row, got %d", len(answers))
	}
	stored := answers[0]
	if len(stored.SelectedOptionIDs) != 1 || stored.SelectedOptionIDs[0] != correctOption(q1) {
		t.Errorf("stored selection %v does not reflect the latest upsert", stored.SelectedOptionIDs)
	}
	if stored.IsCorrect == nil || !*stored.IsCorrect || stored.Points == nil || *stored.Points != 5 {
		t.Errorf("expected correct verdict worth 5, got %+v", stored)
	}
}

func TestUpsertAnswer_Grading(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, func(r *validator.CreateQuizRequest) {
		r.Questions = append(r.Questions,
			validator.QuestionRequest{
				Statement:         "Vector quantities?",
				Type:              models.QuestionMultipleChoice,
				HasAutoCorrection: true,
				Points:            4,
				Options: []validator.OptionRequest{
					{Text: "velocity", IsCorrect: true},
					{Text: "force", IsCorrect: true},
					{Text: "mass"},
				},
			},
			validator.QuestionRequest{
				Statement:         "SI unit of time?",
				Type:              models.QuestionText,
				HasAutoCorrection: true,
				Points:            2,
				CorrectTextAnswer: strPtr("Second"),
			},
		)
	})
	env.clock.Set(quizStart)
	attempt := env.start(t, quiz.ID, student)

	mc := quiz.Questions[2]
	a, b, c := mc.Options[0].ID, mc.Options[1].ID, mc.Options[2].ID

	mcCases := []struct {
		name     string
		selected []uint
		want     float64
	}{
		{name: "subset", selected: []uint{a}, want: 0},
		{name: "superset", selected: []uint{a, b, c}, want: 0},
		{name: "empty", selected: []uint{}, want: 0},
		{name: "exact set", selected: []uint{b, a}, want: 4},
		{name: "exact set with duplicates", selected: []uint{a, b, a}, want: 4},
	}
	for _, tt := range mcCases {
		t.Run("multiple choice "+tt.name, func(t *testing.T) {
			answer := env.answer(t, attempt.ID, mc.ID, &validator.UpsertAnswerRequest{SelectedOptionIDs: tt.selected})
			if answer.Points == nil || *answer.Points != tt.want {
				t.Errorf("points = %v, want %v", answer.Points, tt.want)
			}
			if answer.NeedsManualReview {
				t.Error("auto-graded answer flagged for manual review")
			}
		})
	}

	t.Run("text with reference ignores case and spacing", func(t *testing.T) {
		answer := env.answer(t, attempt.ID, quiz.Questions[3].ID, &validator.UpsertAnswerRequest{Text: strPtr("  second ")})
		if answer.Points == nil || *answer.Points != 2 {
			t.Errorf("points = %v, want 2", answer.Points)
		}
	})

	t.Run("text without auto-correction waits for a grader", func(t *testing.T) {
		answer := env.answer(t, attempt.ID, quiz.Questions[1].ID, &validator.UpsertAnswerRequest{Text: strPtr("resistance to change")})
		if !answer.NeedsManualReview || answer.Points != nil || answer.IsCorrect != nil {
			t.Errorf("expected pending manual review, got %+v", answer)
		}
	})
}

func TestUpsertAnswer_Errors(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, nil)
	other := env.seedQuiz(t, nil)
	env.clock.Set(quizStart)
	attempt := env.start(t, quiz.ID, student)

	q1, q2 := quiz.Questions[0], quiz.Questions[1]

	tests := []struct {
		name       string
		attemptID  uint
		questionID uint
		req        *validator.UpsertAnswerRequest
		who        models.Principal
		wantErr    error
	}{
		{name: "missing attempt", attemptID: 999, questionID: q1.ID, req: &validator.UpsertAnswerRequest{}, who: student, wantErr: ErrAttemptNotFound},
		{name: "someone else's attempt", attemptID: attempt.ID, questionID: q1.ID, req: &validator.UpsertAnswerRequest{}, who: otherStudent, wantErr: ErrForbidden},
		{name: "question of another quiz", attemptID: attempt.ID, questionID: other.Questions[0].ID, req: &validator.UpsertAnswerRequest{}, who: student, wantErr: ErrQuestionNotFound},
		{name: "foreign option", attemptID: attempt.ID, questionID: q1.ID, req: &validator.UpsertAnswerRequest{SelectedOptionIDs: []uint{other.Questions[0].Options[0].ID}}, who: student, wantErr: ErrValidationFailed},
		{name: "options on text question", attemptID: attempt.ID, questionID: q2.ID, req: &validator.UpsertAnswerRequest{SelectedOptionIDs: []uint{q1.Options[0].ID}}, who: student, wantErr: ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.manager.Answer().UpsertAnswer(env.ctx, tt.attemptID, tt.questionID, tt.req, tt.who)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("rejected writes leave no row", func(t *testing.T) {
		answers, err := env.repo.Answer().GetByAttempt(env.ctx, attempt.ID)
		if err != nil {
			t.Fatalf("GetByAttempt: %v", err)
		}
		if len(answers) != 0 {
			t.Errorf("expected no answers, got %d", len(answers))
		}
	})
}

func TestUpsertAnswer_AfterSubmit(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, nil)
	env.clock.Set(quizStart)
	attempt := env.start(t, quiz.ID, student)

	if _, err := env.manager.Attempt().FinalizeAttempt(env.ctx, attempt.ID, nil, student); err != nil {
		t.Fatalf("FinalizeAttempt: %v", err)
	}

	_, err := env.manager.Answer().UpsertAnswer(env.ctx, attempt.ID, quiz.Questions[0].ID, &validator.UpsertAnswerRequest{}, student)
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
}

func TestUpsertAnswer_TimeLimitElapsed(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, nil)
	env.clock.Set(quizStart)
	attempt := env.start(t, quiz.ID, student)

	q1 := quiz.Questions[0]
	env.answer(t, attempt.ID, q1.ID, &validator.UpsertAnswerRequest{SelectedOptionIDs: []uint{correctOption(q1)}})

	env.clock.Advance(10 * time.Minute)
	_, err := env.manager.Answer().UpsertAnswer(env.ctx, attempt.ID, q1.ID, &validator.UpsertAnswerRequest{SelectedOptionIDs: []uint{wrongOption(q1)}}, student)
	if !errors.Is(err, ErrWindowClosed) {
		t.Fatalf("expected ErrWindowClosed, got %v", err)
	}

	stored, err := env.repo.Attempt().GetByID(env.ctx, attempt.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !stored.IsSubmitted || *stored.EndReason != models.EndReasonTimeOut {
		t.Fatalf("expected attempt to be expired, got %+v", stored)
	}
	if stored.Score == nil || *stored.Score != 5 {
		t.Errorf("expected score from the answer given in time, got %v", stored.Score)
	}

	// the late write must not have replaced the earlier answer
	answer, err := env.repo.Answer().GetByAttemptAndQuestion(env.ctx, attempt.ID, q1.ID)
	if err != nil {
		t.Fatalf("GetByAttemptAndQuestion: %v", err)
	}
	if answer.SelectedOptionIDs[0] != correctOption(q1) {
		t.Errorf("late answer was stored: %v", answer.SelectedOptionIDs)
	}
}

func TestUpsertAnswer_QuizEndBeforeTimeLimit(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, nil)

	// 10 minute limit, but the window closes after 5
	env.clock.Set(quizEnd.Add(-5 * time.Minute))
	attempt := env.start(t, quiz.ID, student)
	q1 := quiz.Questions[0]
	env.answer(t, attempt.ID, q1.ID, &validator.UpsertAnswerRequest{SelectedOptionIDs: []uint{wrongOption(q1)}})

	env.clock.Set(quizEnd)
	_, err := env.manager.Answer().UpsertAnswer(env.ctx, attempt.ID, q1.ID, &validator.UpsertAnswerRequest{SelectedOptionIDs: []uint{correctOption(q1)}}, student)
	if !errors.Is(err, ErrWindowClosed) {
		t.Fatalf("expected ErrWindowClosed, got %v", err)
	}

	stored, err := env.repo.Attempt().GetByID(env.ctx, attempt.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !stored.IsSubmitted || *stored.EndReason != models.EndReasonTimeOut {
		t.Fatalf("expected attempt to be expired, got %+v", stored)
	}
	if stored.SubmittedAt == nil || !stored.SubmittedAt.Equal(quizEnd) {
		t.Errorf("submitted_at = %v, want the quiz end", stored.SubmittedAt)
	}
}
