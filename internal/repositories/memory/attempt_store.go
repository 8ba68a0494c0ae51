package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/timing"
)

// ===== ATTEMPTS =====

type attemptStore struct{ r *Repository }

func (s attemptStore) Create(_ context.Context, attempt *models.Attempt) error {
	return s.r.run(func(d *dataset) error {
		if !attempt.IsSubmitted {
			for _, existing := range d.attempts {
				if existing.QuizID == attempt.QuizID && existing.StudentID == attempt.StudentID && !existing.IsSubmitted {
					return fmt.Errorf("open attempt for quiz %d: %w", attempt.QuizID, repositories.ErrDuplicate)
				}
			}
		}
		now := s.r.now()
		attempt.ID = d.nextID("attempts")
		attempt.CreatedAt, attempt.UpdatedAt = now, now
		d.attempts[attempt.ID] = copyAttempt(*attempt)
		return nil
	})
}

func (s attemptStore) GetByID(_ context.Context, id uint) (*models.Attempt, error) {
	var out *models.Attempt
	err := s.r.run(func(d *dataset) error {
		attempt, ok := d.attempts[id]
		if !ok {
			return notFound("attempt %d", id)
		}
		c := copyAttempt(attempt)
		out = &c
		return nil
	})
	return out, err
}

// GetByIDForUpdate and GetByIDForShare rely on the transaction lock
func (s attemptStore) GetByIDForUpdate(ctx context.Context, id uint) (*models.Attempt, error) {
	return s.GetByID(ctx, id)
}

func (s attemptStore) GetByIDForShare(ctx context.Context, id uint) (*models.Attempt, error) {
	return s.GetByID(ctx, id)
}

func (s attemptStore) GetByIDWithAnswers(_ context.Context, id uint) (*models.Attempt, error) {
	var out *models.Attempt
	err := s.r.run(func(d *dataset) error {
		attempt, ok := d.attempts[id]
		if !ok {
			return notFound("attempt %d", id)
		}
		c := copyAttempt(attempt)
		for _, answer := range answersOf(d, id) {
			c.Answers = append(c.Answers, *answer)
		}
		out = &c
		return nil
	})
	return out, err
}

func (s attemptStore) Update(_ context.Context, attempt *models.Attempt) error {
	return s.r.run(func(d *dataset) error {
		existing, ok := d.attempts[attempt.ID]
		if !ok {
			return notFound("attempt %d", attempt.ID)
		}
		attempt.CreatedAt = existing.CreatedAt
		attempt.UpdatedAt = s.r.now()
		stored := copyAttempt(*attempt)
		stored.Answers = nil
		d.attempts[attempt.ID] = stored
		return nil
	})
}

func (s attemptStore) GetOpenAttempt(_ context.Context, quizID uint, studentID string) (*models.Attempt, error) {
	var out *models.Attempt
	err := s.r.run(func(d *dataset) error {
		for _, attempt := range d.attempts {
			if attempt.QuizID == quizID && attempt.StudentID == studentID && !attempt.IsSubmitted {
				c := copyAttempt(attempt)
				out = &c
				return nil
			}
		}
		return notFound("open attempt for quiz %d", quizID)
	})
	return out, err
}

func (s attemptStore) HasSubmittedAttempt(_ context.Context, quizID uint, studentID string) (bool, error) {
	var found bool
	err := s.r.run(func(d *dataset) error {
		for _, attempt := range d.attempts {
			if attempt.QuizID == quizID && attempt.StudentID == studentID && attempt.IsSubmitted {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

func (s attemptStore) ListByQuiz(_ context.Context, quizID uint, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	var out []*models.Attempt
	err := s.r.run(func(d *dataset) error {
		for _, attempt := range d.attempts {
			if attempt.QuizID != quizID || !matchesFilters(attempt, filters) {
				continue
			}
			c := copyAttempt(attempt)
			out = append(out, &c)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sortAttempts(out, filters.SortBy, filters.SortOrder)
	total := int64(len(out))

	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			out = nil
		} else {
			out = out[filters.Offset:]
		}
	}
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}

	return out, total, nil
}

func (s attemptStore) ListOverdue(_ context.Context, now time.Time, quizID *uint, limit int) ([]*models.Attempt, error) {
	var out []*models.Attempt
	err := s.r.run(func(d *dataset) error {
		for _, attempt := range d.attempts {
			if attempt.IsSubmitted || (quizID != nil && attempt.QuizID != *quizID) {
				continue
			}
			quiz, ok := d.quizzes[attempt.QuizID]
			if !ok {
				continue
			}
			if timing.IsOverdue(&quiz, &attempt, now) {
				c := copyAttempt(attempt)
				out = append(out, &c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortAttempts(out, "started_at", "asc")
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesFilters(a models.Attempt, f repositories.AttemptFilters) bool {
	if f.IsSubmitted != nil && a.IsSubmitted != *f.IsSubmitted {
		return false
	}
	if f.StudentID != nil && a.StudentID != *f.StudentID {
		return false
	}
	if f.DateFrom != nil && a.StartedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && a.StartedAt.After(*f.DateTo) {
		return false
	}
	return true
}

// sortAttempts mirrors the SQL ordering; nil values sort first, like NULLS FIRST ascending
func sortAttempts(attempts []*models.Attempt, sortBy, sortOrder string) {
	asc := sortOrder == "asc" || sortOrder == "ASC"

	less := func(a, b *models.Attempt) (bool, bool) {
		switch sortBy {
		case "submitted_at":
			switch {
			case a.SubmittedAt == nil && b.SubmittedAt == nil:
				return false, false
			case a.SubmittedAt == nil:
				return true, true
			case b.SubmittedAt == nil:
				return false, true
			}
			return a.SubmittedAt.Before(*b.SubmittedAt), !a.SubmittedAt.Equal(*b.SubmittedAt)
		case "score":
			switch {
			case a.Score == nil && b.Score == nil:
				return false, false
			case a.Score == nil:
				return true, true
			case b.Score == nil:
				return false, true
			}
			return *a.Score < *b.Score, *a.Score != *b.Score
		case "id":
			return a.ID < b.ID, a.ID != b.ID
		default:
			return a.StartedAt.Before(b.StartedAt), !a.StartedAt.Equal(b.StartedAt)
		}
	}

	sort.SliceStable(attempts, func(i, j int) bool {
		l, differ := less(attempts[i], attempts[j])
		if !differ {
			return attempts[i].ID < attempts[j].ID
		}
		if asc {
			return l
		}
		return !l
	})
}

func copyAttempt(a models.Attempt) models.Attempt {
	if a.SubmittedAt != nil {
		v := *a.SubmittedAt
		a.SubmittedAt = &v
	}
	if a.TimeRemainingSeconds != nil {
		v := *a.TimeRemainingSeconds
		a.TimeRemainingSeconds = &v
	}
	if a.Score != nil {
		v := *a.Score
		a.Score = &v
	}
	if a.EndReason != nil {
		v := *a.EndReason
		a.EndReason = &v
	}
	a.Answers = nil
	return a
}

// ===== ANSWERS =====

type answerStore struct{ r *Repository }

// Upsert keeps id and created_at of an existing (attempt, question) row
func (s answerStore) Upsert(_ context.Context, answer *models.Answer) error {
	return s.r.run(func(d *dataset) error {
		now := s.r.now()
		stored := copyAnswer(*answer)
		stored.ID = 0
		for _, existing := range d.answers {
			if existing.AttemptID == answer.AttemptID && existing.QuestionID == answer.QuestionID {
				stored.ID = existing.ID
				stored.CreatedAt = existing.CreatedAt
				break
			}
		}
		if stored.ID == 0 {
			stored.ID = d.nextID("answers")
			stored.CreatedAt = now
		}
		stored.UpdatedAt = now
		d.answers[stored.ID] = stored
		*answer = copyAnswer(stored)
		return nil
	})
}

func (s answerStore) GetByID(_ context.Context, id uint) (*models.Answer, error) {
	var out *models.Answer
	err := s.r.run(func(d *dataset) error {
		answer, ok := d.answers[id]
		if !ok {
			return notFound("answer %d", id)
		}
		c := copyAnswer(answer)
		out = &c
		return nil
	})
	return out, err
}

func (s answerStore) GetByAttempt(_ context.Context, attemptID uint) ([]*models.Answer, error) {
	var out []*models.Answer
	err := s.r.run(func(d *dataset) error {
		out = answersOf(d, attemptID)
		return nil
	})
	return out, err
}

func (s answerStore) GetByAttemptAndQuestion(_ context.Context, attemptID, questionID uint) (*models.Answer, error) {
	var out *models.Answer
	err := s.r.run(func(d *dataset) error {
		for _, answer := range d.answers {
			if answer.AttemptID == attemptID && answer.QuestionID == questionID {
				c := copyAnswer(answer)
				out = &c
				return nil
			}
		}
		return notFound("answer for question %d", questionID)
	})
	return out, err
}

func (s answerStore) UpdateGrade(_ context.Context, id uint, grade repositories.AnswerGrade) error {
	return s.r.run(func(d *dataset) error {
		answer, ok := d.answers[id]
		if !ok {
			return notFound("answer %d", id)
		}
		answer = copyAnswer(answer)
		points, correct, grader, gradedAt := grade.Points, grade.IsCorrect, grade.GraderID, grade.GradedAt
		answer.Points = &points
		answer.IsCorrect = &correct
		answer.NeedsManualReview = false
		answer.GradedBy = &grader
		answer.GradedAt = &gradedAt
		answer.UpdatedAt = s.r.now()
		d.answers[id] = answer
		return nil
	})
}

func answersOf(d *dataset, attemptID uint) []*models.Answer {
	var out []*models.Answer
	for _, answer := range d.answers {
		if answer.AttemptID == attemptID {
			c := copyAnswer(answer)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}

func copyAnswer(a models.Answer) models.Answer {
	if a.Text != nil {
		v := *a.Text
		a.Text = &v
	}
	if a.SelectedOptionIDs != nil {
		a.SelectedOptionIDs = append(make([]uint, 0, len(a.SelectedOptionIDs)), a.SelectedOptionIDs...)
	}
	if a.IsCorrect != nil {
		v := *a.IsCorrect
		a.IsCorrect = &v
	}
	if a.Points != nil {
		v := *a.Points
		a.Points = &v
	}
	if a.GradedBy != nil {
		v := *a.GradedBy
		a.GradedBy = &v
	}
	if a.GradedAt != nil {
		v := *a.GradedAt
		a.GradedAt = &v
	}
	return a
}
