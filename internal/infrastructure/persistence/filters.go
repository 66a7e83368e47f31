package persistence

import (
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/stockops/backend/internal/domain/shared"
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// applyFilter applies pagination and ordering from a shared.Filter.
// Order columns are validated against a strict identifier pattern so filter
// input can never reach the SQL as anything but a known column name.
func applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.OrderBy != "" && identifierPattern.MatchString(filter.OrderBy) {
		dir := "ASC"
		if strings.EqualFold(filter.OrderDir, "desc") {
			dir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + dir)
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	return query
}
