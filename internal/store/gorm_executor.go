package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/damoang/angple-branch/internal/common"
	"gorm.io/gorm"
)

type gormExecutor struct {
	db *gorm.DB
}

// NewGormExecutor creates an Executor on top of a gorm connection.
// Placeholders are rewritten by gorm for the active dialect.
func NewGormExecutor(db *gorm.DB) Executor {
	return &gormExecutor{db: db}
}

func (e *gormExecutor) Execute(ctx context.Context, stmt Statement) (*ResultSet, error) {
	db := e.db.WithContext(ctx)

	if !returnsRows(stmt.SQL) {
		tx := db.Exec(stmt.SQL, stmt.Args...)
		if tx.Error != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrStoreFailure, tx.Error)
		}
		return &ResultSet{RowsAffected: tx.RowsAffected}, nil
	}

	rows, err := db.Raw(stmt.SQL, stmt.Args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStoreFailure, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStoreFailure, err)
	}
	for i := range cols {
		cols[i] = strings.ToLower(cols[i])
	}

	result := &ResultSet{Columns: cols}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrStoreFailure, err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStoreFailure, err)
	}
	result.RowsAffected = int64(len(result.Rows))
	return result, nil
}
