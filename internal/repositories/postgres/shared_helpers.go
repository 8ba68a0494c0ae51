package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
)

// translateError maps gorm sentinels onto the repository error set so callers
// never import gorm.
func translateError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", msg, repositories.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", msg, repositories.ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

// ApplyAttemptFilters applies common filters to attempt queries
func ApplyAttemptFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.IsSubmitted != nil {
		query = query.Where("is_submitted = ?", *filters.IsSubmitted)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.DateFrom != nil {
		query = query.Where("started_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("started_at <= ?", *filters.DateTo)
	}
	return query
}

// allowedAttemptSortColumns whitelists sort columns against SQL injection
var allowedAttemptSortColumns = map[string]bool{
	"started_at":   true,
	"submitted_at": true,
	"score":        true,
	"id":           true,
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	if sortBy == "" || !allowedAttemptSortColumns[sortBy] {
		sortBy = "started_at"
	}

	if sortOrder != "asc" && sortOrder != "ASC" {
		sortOrder = "DESC"
	} else {
		sortOrder = "ASC"
	}

	query = query.Order(sortBy + " " + sortOrder).Order("id ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}
