// Package store provides the customer row store behind a minimal
// read-all/write-one-cell surface. The production backend is a shared
// Google Sheet; a Postgres backend with the same positional column layout
// exists for deployments that have outgrown it.
package store

import "context"

// RowStore is the backing tabular store. Rows and columns are 1-based;
// row 1 is the header row, so the first data row is row 2. Records returns
// data rows only, each keyed by column header. UpdateCell is a pure
// overwrite: writing the same value twice leaves the store identical to
// writing it once.
type RowStore interface {
	Records(ctx context.Context) ([]map[string]string, error)
	UpdateCell(ctx context.Context, row, col int, value string) error
}
