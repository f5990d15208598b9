package storage

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	// Drivers are registered here so every caller of Open gets both.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect captures the few places where Postgres and SQLite differ.
type Dialect struct {
	Name        string
	driver      string
	placeholder sq.PlaceholderFormat
	idColumn    string
	aggregate   func(expr string) string
}

var (
	// Postgres is the production dialect, driven by pgx through database/sql.
	Postgres = Dialect{
		Name:        "postgres",
		driver:      "pgx",
		placeholder: sq.Dollar,
		idColumn:    "BIGSERIAL PRIMARY KEY",
		aggregate: func(expr string) string {
			return fmt.Sprintf("string_agg(DISTINCT %s, ',')", expr)
		},
	}

	// SQLite serves local runs and tests.
	SQLite = Dialect{
		Name:        "sqlite",
		driver:      "sqlite",
		placeholder: sq.Question,
		idColumn:    "INTEGER PRIMARY KEY AUTOINCREMENT",
		aggregate: func(expr string) string {
			return fmt.Sprintf("GROUP_CONCAT(DISTINCT %s)", expr)
		},
	}
)

// DialectByName resolves a configured driver name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", name)
	}
}

func (d Dialect) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.placeholder)
}

// inList renders trusted integer codes as a literal SQL list.
func inList(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
