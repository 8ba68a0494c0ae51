// Package timing holds the server-authoritative clock rules for attempts.
// Nothing here keeps state; callers pass the instant they consider "now".
package timing

import (
	"time"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
)

// Remaining returns max(0, limit*60 - elapsed) in whole seconds. Elapsed time is
// truncated to the second so a fresh attempt reports its full limit.
func Remaining(timeLimitMinutes int, startedAt, now time.Time) int {
	limit := time.Duration(timeLimitMinutes) * time.Minute
	elapsed := now.Sub(startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	left := limit - elapsed.Truncate(time.Second)
	if left <= 0 {
		return 0
	}
	return int(left / time.Second)
}

// InWindow reports whether now falls in the half-open window [start, end).
func InWindow(start, end, now time.Time) bool {
	return !now.Before(start) && now.Before(end)
}

// Deadline is the instant an attempt stops accepting writes: the earlier of the
// time limit running out and the quiz window closing.
func Deadline(quiz *models.Quiz, attempt *models.Attempt) time.Time {
	limitEnd := attempt.StartedAt.Add(time.Duration(quiz.TimeLimitMinutes) * time.Minute)
	if quiz.EndAt.Before(limitEnd) {
		return quiz.EndAt
	}
	return limitEnd
}

// RemainingForAttempt is the countdown a client should display: the time limit
// clipped to the quiz window.
func RemainingForAttempt(quiz *models.Quiz, attempt *models.Attempt, now time.Time) int {
	if attempt.IsSubmitted {
		return 0
	}
	byLimit := Remaining(quiz.TimeLimitMinutes, attempt.StartedAt, now)
	untilEnd := int(quiz.EndAt.Sub(now).Truncate(time.Second) / time.Second)
	if untilEnd < 0 {
		untilEnd = 0
	}
	if untilEnd < byLimit {
		return untilEnd
	}
	return byLimit
}

// IsOverdue reports whether an open attempt has passed its deadline.
func IsOverdue(quiz *models.Quiz, attempt *models.Attempt, now time.Time) bool {
	if attempt.IsSubmitted {
		return false
	}
	return !now.Before(Deadline(quiz, attempt))
}
