package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

func QuizKey(quizID uint) string {
	return fmt.Sprintf("id:%d", quizID)
}

func QuizDetailsKey(quizID uint) string {
	return fmt.Sprintf("details:%d", quizID)
}

func EnrollmentKey(subjectID uint, studentID string) string {
	return fmt.Sprintf("subject:%d:student:%s", subjectID, studentID)
}

// InvalidateQuizCache drops every cached view of a quiz
func InvalidateQuizCache(ctx context.Context, cm *CacheManager, quizID uint) {
	SafeDelete(ctx, cm.Quiz, QuizKey(quizID), QuizDetailsKey(quizID))
}
