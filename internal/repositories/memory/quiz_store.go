package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
)

func notFound(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), repositories.ErrNotFound)
}

// ===== SUBJECTS =====

type subjectStore struct{ r *Repository }

func (s subjectStore) Create(_ context.Context, subject *models.Subject) error {
	return s.r.run(func(d *dataset) error {
		now := s.r.now()
		subject.ID = d.nextID("subjects")
		subject.CreatedAt, subject.UpdatedAt = now, now
		d.subjects[subject.ID] = *subject
		return nil
	})
}

func (s subjectStore) GetByID(_ context.Context, id uint) (*models.Subject, error) {
	var out *models.Subject
	err := s.r.run(func(d *dataset) error {
		subject, ok := d.subjects[id]
		if !ok {
			return notFound("subject %d", id)
		}
		out = &subject
		return nil
	})
	return out, err
}

// ===== ENROLLMENTS =====

type enrollmentStore struct{ r *Repository }

func (s enrollmentStore) Enroll(_ context.Context, enrollment *models.Enrollment) error {
	return s.r.run(func(d *dataset) error {
		for _, existing := range d.enrollments {
			if existing.SubjectID == enrollment.SubjectID && existing.StudentID == enrollment.StudentID {
				return fmt.Errorf("enrollment for %s: %w", enrollment.StudentID, repositories.ErrDuplicate)
			}
		}
		enrollment.ID = d.nextID("enrollments")
		enrollment.CreatedAt = s.r.now()
		d.enrollments[enrollment.ID] = *enrollment
		return nil
	})
}

func (s enrollmentStore) HasAccess(_ context.Context, subjectID uint, studentID string) (bool, error) {
	var found bool
	err := s.r.run(func(d *dataset) error {
		for _, e := range d.enrollments {
			if e.SubjectID == subjectID && e.StudentID == studentID {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

// ===== QUIZZES =====

type quizStore struct{ r *Repository }

// Create assigns ids to the quiz, its questions and their options
func (s quizStore) Create(_ context.Context, quiz *models.Quiz) error {
	return s.r.run(func(d *dataset) error {
		now := s.r.now()
		quiz.ID = d.nextID("quizzes")
		quiz.CreatedAt, quiz.UpdatedAt = now, now

		for i := range quiz.Questions {
			q := &quiz.Questions[i]
			q.ID = d.nextID("questions")
			q.QuizID = quiz.ID
			q.CreatedAt, q.UpdatedAt = now, now
			for j := range q.Options {
				q.Options[j].ID = d.nextID("options")
				q.Options[j].QuestionID = q.ID
			}
			d.questions[q.ID] = copyQuestion(*q)
		}

		stored := *quiz
		stored.Questions = nil
		d.quizzes[quiz.ID] = stored
		return nil
	})
}

func (s quizStore) GetByID(_ context.Context, id uint) (*models.Quiz, error) {
	var out *models.Quiz
	err := s.r.run(func(d *dataset) error {
		quiz, ok := d.quizzes[id]
		if !ok {
			return notFound("quiz %d", id)
		}
		out = &quiz
		return nil
	})
	return out, err
}

func (s quizStore) GetByIDWithQuestions(_ context.Context, id uint) (*models.Quiz, error) {
	var out *models.Quiz
	err := s.r.run(func(d *dataset) error {
		quiz, ok := d.quizzes[id]
		if !ok {
			return notFound("quiz %d", id)
		}
		for _, q := range d.questions {
			if q.QuizID == id {
				quiz.Questions = append(quiz.Questions, copyQuestion(q))
			}
		}
		sort.Slice(quiz.Questions, func(i, j int) bool {
			a, b := quiz.Questions[i], quiz.Questions[j]
			if a.Order != b.Order {
				return a.Order < b.Order
			}
			return a.ID < b.ID
		})
		out = &quiz
		return nil
	})
	return out, err
}

// ===== QUESTIONS =====

type questionStore struct{ r *Repository }

func (s questionStore) GetByID(_ context.Context, id uint) (*models.Question, error) {
	var out *models.Question
	err := s.r.run(func(d *dataset) error {
		q, ok := d.questions[id]
		if !ok {
			return notFound("question %d", id)
		}
		c := copyQuestion(q)
		out = &c
		return nil
	})
	return out, err
}

// copyQuestion detaches the options slice and orders it by position
func copyQuestion(q models.Question) models.Question {
	q.Options = append([]models.Option(nil), q.Options...)
	sort.Slice(q.Options, func(i, j int) bool {
		if q.Options[i].Order != q.Options[j].Order {
			return q.Options[i].Order < q.Options[j].Order
		}
		return q.Options[i].ID < q.Options[j].ID
	})
	if q.CorrectTextAnswer != nil {
		v := *q.CorrectTextAnswer
		q.CorrectTextAnswer = &v
	}
	return q
}
