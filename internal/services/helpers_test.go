package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/events"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories/memory"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

var (
	teacher      = models.Principal{UserID: "teacher-1", Role: models.RoleTeacher}
	otherTeacher = models.Principal{UserID: "teacher-2", Role: models.RoleTeacher}
	admin        = models.Principal{UserID: "admin-1", Role: models.RoleAdmin}
	student      = models.Principal{UserID: "student-1", Role: models.RoleStudent}
	otherStudent = models.Principal{UserID: "student-2", Role: models.RoleStudent}

	quizStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	quizEnd   = quizStart.Add(2 * time.Hour)
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	ctx       context.Context
	repo      *memory.Repository
	publisher *events.MockEventPublisher
	clock     *testClock
	manager   ServiceManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		ctx:       context.Background(),
		repo:      memory.New(nil),
		publisher: events.NewMockEventPublisher(logger),
		clock:     &testClock{now: quizStart.Add(-24 * time.Hour)},
	}

	env.manager = NewServiceManager(env.repo, logger, validator.New(), env.publisher, ServiceManagerConfig{
		Clock:      env.clock.Now,
		SweepBatch: 100,
	})
	if err := env.manager.Initialize(env.ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() {
		_ = env.manager.Shutdown(context.Background())
	})

	return env
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }

// seedSubject creates a subject owned by teacher with student enrolled
func (e *testEnv) seedSubject(t *testing.T) *models.Subject {
	t.Helper()

	subject, err := e.manager.Quiz().CreateSubject(e.ctx, &validator.CreateSubjectRequest{Name: "Physics"}, teacher)
	if err != nil {
		t.Fatalf("CreateSubject: %v", err)
	}
	if _, err := e.manager.Quiz().Enroll(e.ctx, subject.ID, &validator.EnrollRequest{StudentID: student.UserID}, teacher); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	return subject
}

// seedQuiz creates the two-question quiz used across tests: an auto-graded
// SINGLE_CHOICE worth 5 and a manually graded TEXT worth 5.
func (e *testEnv) seedQuiz(t *testing.T, mutate func(*validator.CreateQuizRequest)) *models.Quiz {
	t.Helper()

	subject := e.seedSubject(t)
	req := &validator.CreateQuizRequest{
		SubjectID:        subject.ID,
		Title:            "Kinematics",
		TimeLimitMinutes: 10,
		StartAt:          quizStart,
		EndAt:            quizEnd,
		Questions: []validator.QuestionRequest{
			{
				Statement:         "Unit of force?",
				Type:              models.QuestionSingleChoice,
				HasAutoCorrection: true,
				Points:            5,
				Options: []validator.OptionRequest{
					{Text: "Newton", IsCorrect: true},
					{Text: "Joule"},
				},
			},
			{
				Statement: "Explain inertia.",
				Type:      models.QuestionText,
				Points:    5,
			},
		},
	}
	if mutate != nil {
		mutate(req)
	}

	quiz, err := e.manager.Quiz().CreateQuiz(e.ctx, req, teacher)
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}
	return quiz
}

func (e *testEnv) start(t *testing.T, quizID uint, who models.Principal) *AttemptResponse {
	t.Helper()

	resp, err := e.manager.Attempt().StartAttempt(e.ctx, quizID, who)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	return resp
}

func (e *testEnv) answer(t *testing.T, attemptID, questionID uint, req *validator.UpsertAnswerRequest) *models.Answer {
	t.Helper()

	answer, err := e.manager.Answer().UpsertAnswer(e.ctx, attemptID, questionID, req, student)
	if err != nil {
		t.Fatalf("UpsertAnswer: %v", err)
	}
	return answer
}

func correctOption(q models.Question) uint {
	for _, o := range q.Options {
		if o.IsCorrect {
			return o.ID
		}
	}
	return 0
}

func wrongOption(q models.Question) uint {
	for _, o := range q.Options {
		if !o.IsCorrect {
			return o.ID
		}
	}
	return 0
}
