// Package debugsql validates and executes ad-hoc read-only queries against
// the received_packet table. Free-form SQL from an untrusted caller passes
// a layered safety pipeline before it reaches the database: a grammar-based
// statement-kind check, a token blocklist, and a table-scope check. Neither
// the parser nor the blocklist is sufficient alone; both are required.
package debugsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xwb1989/sqlparser"
)

// Validation and execution outcomes the HTTP layer branches on.
var (
	ErrInvalidSyntax  = errors.New("invalid SQL syntax")
	ErrNotSelect      = errors.New("only SELECT statements are allowed")
	ErrUnsafeToken    = errors.New("potentially unsafe SQL detected")
	ErrForbiddenTable = errors.New("only queries on 'received_packet' are allowed")
	ErrExecution      = errors.New("SQL execution failed")
)

const (
	allowedTable = "received_packet"
	rowCap       = 9999
)

var blockedTokens = []string{"union", ";", "--", "/*"}

// Validate runs the safety pipeline on a free-text query and returns the
// normalized statement to execute. Each step is a hard reject.
func Validate(query string) (string, error) {
	q := strings.ToLower(strings.TrimSpace(query))

	stmt, err := sqlparser.Parse(q)
	if err != nil {
		return "", ErrInvalidSyntax
	}

	if _, ok := stmt.(*sqlparser.Select); !ok {
		return "", ErrNotSelect
	}

	// Defense in depth against statement splitting and comment obfuscation,
	// deliberately redundant with the parse above.
	for _, tok := range blockedTokens {
		if strings.Contains(q, tok) {
			return "", ErrUnsafeToken
		}
	}

	if !strings.Contains(q, "from "+allowedTable) {
		return "", ErrForbiddenTable
	}

	if !strings.Contains(q, "limit") {
		q += fmt.Sprintf(" LIMIT %d", rowCap)
	}

	return q, nil
}

// Result is the tabular outcome of an executed query.
type Result struct {
	Columns []string  `json:"columns"`
	Rows    [][]Value `json:"rows"`
}

// Executor runs validated queries against the packet store connection.
type Executor struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutor creates an Executor backed by the given database handle.
func NewExecutor(db *sql.DB, logger *slog.Logger) *Executor {
	return &Executor{db: db, logger: logger}
}

// Run validates the query and executes it. Validation failures surface as
// the sentinel errors above; execution failures are logged in detail and
// surfaced only as ErrExecution so engine internals never reach a caller.
func (e *Executor) Run(ctx context.Context, query string) (*Result, error) {
	stmt, err := Validate(query)
	if err != nil {
		return nil, err
	}

	e.logger.Warn("running public debug SQL query", "sql", stmt)

	rows, err := e.db.QueryContext(ctx, stmt)
	if err != nil {
		e.logger.Error("debug query failed", "sql", stmt, "error", err)
		return nil, ErrExecution
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		e.logger.Error("debug query columns failed", "error", err)
		return nil, ErrExecution
	}

	result := &Result{Columns: columns, Rows: [][]Value{}}

	for rows.Next() {
		raw := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range raw {
			dest[i] = &raw[i]
		}

		if err := rows.Scan(dest...); err != nil {
			e.logger.Error("debug query scan failed", "error", err)
			return nil, ErrExecution
		}

		row := make([]Value, len(columns))
		for i, cell := range raw {
			v, err := valueOf(cell)
			if err != nil {
				e.logger.Error("debug query cell conversion failed", "column", columns[i], "error", err)
				return nil, ErrExecution
			}
			row[i] = v
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		e.logger.Error("debug query iteration failed", "error", err)
		return nil, ErrExecution
	}

	return result, nil
}
