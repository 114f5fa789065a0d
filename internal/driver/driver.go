// Package driver defines the execution backend the compiler consumes
// (§6.2): listing relations and columns, and executing SQL.
package driver

import (
	"context"
	"errors"
)

// ErrClosed is returned by any Driver method called after Close.
var ErrClosed = errors.New("driver: connection is closed")

// ColumnInfo is one row of list_columns: an attribute name paired
// with its raw, driver-reported SQL type.
type ColumnInfo struct {
	Name       string
	RawSQLType string
}

// Header is one column of an executed query's result set: the name
// the driver reports, independent of any caller-preferred alias.
type Header struct {
	Name string
}

// Driver is the external collaborator the compiler's catalog and
// Subtree Inspector consume: list tables, list columns and their SQL
// types, execute a query (§6.2).
type Driver interface {
	ListRelations(ctx context.Context) ([]string, error)
	ListColumns(ctx context.Context, relation string) ([]ColumnInfo, error)
	Execute(ctx context.Context, sql string) ([]Header, [][]any, error)
	Close() error
}
