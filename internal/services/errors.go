package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// isUniqueConstraintError detects uniqueness violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	// Message fallback for drivers without typed errors. Kept narrow so
	// other constraint classes (NOT NULL, CHECK) stay internal errors.
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") ||
		strings.Contains(lower, "duplicate")
}

// violatedField inspects a uniqueness error for one of the supplied column
// names so the caller can report which field clashed.
func violatedField(err error, columns ...string) string {
	if err == nil {
		return ""
	}

	lower := strings.ToLower(err.Error())
	for _, column := range columns {
		if strings.Contains(lower, strings.ToLower(column)) {
			return column
		}
	}
	return ""
}
