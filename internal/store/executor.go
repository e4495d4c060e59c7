// Package store defines the single capability the branching core needs from
// the relational store: execute one statement, get rows of named columns back.
package store

import (
	"context"
	"strings"
)

// Statement is one SQL statement with positional `?` arguments
type Statement struct {
	SQL  string
	Args []interface{}
}

// Q builds a Statement
func Q(sql string, args ...interface{}) Statement {
	return Statement{SQL: sql, Args: args}
}

// ResultSet generic tabular result. Column names are lower-cased.
type ResultSet struct {
	Columns      []string
	Rows         []Row
	RowsAffected int64
}

// First returns the first row, or nil when the result is empty
func (r *ResultSet) First() Row {
	if r == nil || len(r.Rows) == 0 {
		return nil
	}
	return r.Rows[0]
}

// Executor executes a statement against the relational store.
// Implementations wrap every driver failure with common.ErrStoreFailure.
type Executor interface {
	Execute(ctx context.Context, stmt Statement) (*ResultSet, error)
}

// ExecutorFunc adapts a function to Executor
type ExecutorFunc func(ctx context.Context, stmt Statement) (*ResultSet, error)

func (f ExecutorFunc) Execute(ctx context.Context, stmt Statement) (*ResultSet, error) {
	return f(ctx, stmt)
}

// returnsRows reports whether the statement produces a result set
func returnsRows(sql string) bool {
	s := strings.TrimSpace(sql)
	end := strings.IndexFunc(s, func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\t' || r == '\r' || r == '('
	})
	if end > 0 {
		s = s[:end]
	}
	switch strings.ToUpper(s) {
	case "SELECT", "WITH", "SHOW", "PRAGMA", "EXPLAIN", "DESCRIBE":
		return true
	}
	return false
}
