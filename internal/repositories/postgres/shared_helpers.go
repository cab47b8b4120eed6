package postgres

import (
	"strings"

	"gorm.io/gorm"
)

// Columns callers may sort by. Anything else falls back to created_at so
// user input never reaches the ORDER BY clause unchecked.
var sortableColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"id":         true,
	"name":       true,
	"difficulty": true,
	"type":       true,
	"score":      true,
	"started_at": true,
	"order":      true,
}

// SharedHelpers contains query helpers common to the postgres repositories.
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// ApplyPaginationAndSort applies the list-endpoint sort and page window. The
// column is quoted because "order" is a reserved word in Postgres.
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	if !sortableColumns[sortBy] {
		sortBy = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}
	query = query.Order(`"` + sortBy + `" ` + direction)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}
