package services

import (
	"errors"
	"testing"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/events"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

func TestCreateQuiz_PublishesEvent(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, nil)

	published := env.publisher.EventsOfType(events.QuizPublished)
	if len(published) != 1 {
		t.Fatalf("expected 1 quiz.published event, got %d", len(published))
	}
	data, ok := published[0].Data.(events.QuizPublishedData)
	if !ok {
		t.Fatalf("unexpected payload %T", published[0].Data)
	}
	if data.QuizID != quiz.ID || data.SubjectID != quiz.SubjectID {
		t.Errorf("payload %+v does not describe quiz %d", data, quiz.ID)
	}
}

func TestCreateQuiz_PublishFailureDoesNotFail(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.SetFailure(true)

	quiz := env.seedQuiz(t, nil)
	if quiz.ID == 0 {
		t.Fatal("quiz was not stored")
	}
	if len(env.publisher.GetPublishedEvents()) != 0 {
		t.Error("failing publisher recorded events")
	}

	stored, err := env.repo.Quiz().GetByIDWithQuestions(env.ctx, quiz.ID)
	if err != nil {
		t.Fatalf("GetByIDWithQuestions: %v", err)
	}
	if len(stored.Questions) != 2 {
		t.Errorf("expected 2 questions, got %d", len(stored.Questions))
	}
}

func TestCreateQuiz_Rejections(t *testing.T) {
	env := newTestEnv(t)
	subject := env.seedSubject(t)

	base := func() *validator.CreateQuizRequest {
		return &validator.CreateQuizRequest{
			SubjectID:        subject.ID,
			Title:            "Optics",
			TimeLimitMinutes: 15,
			StartAt:          quizStart,
			EndAt:            quizEnd,
			Questions: []validator.QuestionRequest{{
				Statement: "Define refraction.",
				Type:      models.QuestionText,
				Points:    3,
			}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*validator.CreateQuizRequest)
		caller  models.Principal
		wantErr error
	}{
		{name: "student author", caller: student, wantErr: ErrForbidden},
		{name: "teacher of another subject", caller: otherTeacher, wantErr: ErrForbidden},
		{name: "missing subject", mutate: func(r *validator.CreateQuizRequest) { r.SubjectID = 999 }, caller: teacher, wantErr: ErrSubjectNotFound},
		{name: "end before start", mutate: func(r *validator.CreateQuizRequest) { r.EndAt = quizStart }, caller: teacher, wantErr: ErrValidationFailed},
		{name: "no questions", mutate: func(r *validator.CreateQuizRequest) { r.Questions = nil }, caller: teacher, wantErr: ErrValidationFailed},
		{
			name: "single choice with two correct options",
			mutate: func(r *validator.CreateQuizRequest) {
				r.Questions = []validator.QuestionRequest{{
					Statement: "Pick one", Type: models.QuestionSingleChoice, HasAutoCorrection: true, Points: 1,
					Options: []validator.OptionRequest{{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true}},
				}}
			},
			caller:  teacher,
			wantErr: ErrValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			if tt.mutate != nil {
				tt.mutate(req)
			}
			_, err := env.manager.Quiz().CreateQuiz(env.ctx, req, tt.caller)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("admin may author for any subject", func(t *testing.T) {
		if _, err := env.manager.Quiz().CreateQuiz(env.ctx, base(), admin); err != nil {
			t.Fatalf("CreateQuiz as admin: %v", err)
		}
	})
}

func TestGetQuiz_StripsAnswerKey(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, func(r *validator.CreateQuizRequest) {
		r.Questions[1].HasAutoCorrection = true
		r.Questions[1].CorrectTextAnswer = strPtr("mass resists acceleration")
	})

	t.Run("student sees no key", func(t *testing.T) {
		got, err := env.manager.Quiz().GetQuiz(env.ctx, quiz.ID, student)
		if err != nil {
			t.Fatalf("GetQuiz: %v", err)
		}
		for _, q := range got.Questions {
			if q.CorrectTextAnswer != nil {
				t.Errorf("question %d leaks its reference answer", q.ID)
			}
			for _, o := range q.Options {
				if o.IsCorrect {
					t.Errorf("option %d leaks correctness", o.ID)
				}
			}
		}
	})

	t.Run("owner sees key", func(t *testing.T) {
		got, err := env.manager.Quiz().GetQuiz(env.ctx, quiz.ID, teacher)
		if err != nil {
			t.Fatalf("GetQuiz: %v", err)
		}
		if correctOption(got.Questions[0]) == 0 || got.Questions[1].CorrectTextAnswer == nil {
			t.Error("owner should see the answer key")
		}
	})

	t.Run("unenrolled student forbidden", func(t *testing.T) {
		if _, err := env.manager.Quiz().GetQuiz(env.ctx, quiz.ID, otherStudent); !errors.Is(err, ErrForbidden) {
			t.Errorf("expected forbidden, got %v", err)
		}
	})
}

func TestEnroll(t *testing.T) {
	env := newTestEnv(t)
	subject := env.seedSubject(t)

	if _, err := env.manager.Quiz().Enroll(env.ctx, subject.ID, &validator.EnrollRequest{StudentID: student.UserID}, teacher); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Errorf("expected ErrAlreadyEnrolled, got %v", err)
	}
	if _, err := env.manager.Quiz().Enroll(env.ctx, subject.ID, &validator.EnrollRequest{StudentID: "s-9"}, otherTeacher); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	if _, err := env.manager.Quiz().Enroll(env.ctx, 999, &validator.EnrollRequest{StudentID: "s-9"}, teacher); !errors.Is(err, ErrSubjectNotFound) {
		t.Errorf("expected subject not found, got %v", err)
	}
}
