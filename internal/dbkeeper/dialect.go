package dbkeeper

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/drstein77/receiptanalyzer/internal/normalize"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Dialect holds what differs between the supported databases. Everything
// else in the analysis SQL (double-quoted identifiers, CAST, NULLIF, LIKE
// with ||) is shared by SQLite and PostgreSQL.
type Dialect struct {
	// Driver is the database/sql driver name.
	Driver string
	// SQLite is true for both SQLite drivers.
	SQLite bool

	types        map[normalize.Kind]string
	placeholder  func(n int) string
	month        func(expr string) string
	columnsQuery string
}

var sqlitePlaceholder = func(int) string { return "?" }

func sqliteMonth(expr string) string {
	return fmt.Sprintf("STRFTIME('%%Y-%%m', %s / 1000, 'unixepoch')", expr)
}

var sqliteTypes = map[normalize.Kind]string{
	normalize.KindText:    "TEXT",
	normalize.KindInteger: "INTEGER",
	normalize.KindReal:    "REAL",
	normalize.KindBoolean: "INTEGER",
}

var dialects = map[string]Dialect{
	// cgo driver
	"sqlite3": {
		Driver:       "sqlite3",
		SQLite:       true,
		types:        sqliteTypes,
		placeholder:  sqlitePlaceholder,
		month:        sqliteMonth,
		columnsQuery: `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`,
	},
	// pure Go driver
	"sqlite": {
		Driver:       "sqlite",
		SQLite:       true,
		types:        sqliteTypes,
		placeholder:  sqlitePlaceholder,
		month:        sqliteMonth,
		columnsQuery: `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`,
	},
	"pgx": {
		Driver: "pgx",
		types: map[normalize.Kind]string{
			normalize.KindText:    "TEXT",
			normalize.KindInteger: "BIGINT",
			normalize.KindReal:    "DOUBLE PRECISION",
			normalize.KindBoolean: "BOOLEAN",
		},
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		month: func(expr string) string {
			return fmt.Sprintf("TO_CHAR(TO_TIMESTAMP(%s / 1000.0) AT TIME ZONE 'UTC', 'YYYY-MM')", expr)
		},
		columnsQuery: `SELECT column_name, data_type FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position`,
	},
}

// LookupDialect returns the dialect registered for a driver name.
func LookupDialect(driver string) (Dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return Dialect{}, fmt.Errorf("unsupported database driver %q (want sqlite3, sqlite or pgx)", driver)
	}
	return d, nil
}

// Month returns an expression turning epoch milliseconds into 'YYYY-MM' (UTC).
func (d Dialect) Month(expr string) string {
	return d.month(expr)
}

// Type returns the column type used to store values of kind k.
func (d Dialect) Type(k normalize.Kind) string {
	return d.types[k]
}

// Rebind replaces each '?' placeholder in query with the dialect's own.
// Question marks inside quoted literals or identifiers are left alone.
func (d Dialect) Rebind(query string) string {
	if d.SQLite {
		return query
	}

	var (
		b     strings.Builder
		n     int
		quote rune
	)
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '?':
			n++
			b.WriteString(d.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Quote quotes an identifier. Column names such as "_id.$oid" need it.
func Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
