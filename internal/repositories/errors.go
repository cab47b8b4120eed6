package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row. Implementations wrap
// it with context; callers test with IsNotFoundError.
var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err stems from a missing record.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
