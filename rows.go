package bqtools

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/iterator"
	"golang.org/x/xerrors"
)

// DefaultPageSize is the number of rows fetched per page by RowIterator.
const DefaultPageSize = 100000

// RowIterator iterates over rows of a table.
type RowIterator struct {
	ctx       context.Context
	warehouse Warehouse

	project string
	dataset string
	table   string

	// PageSize may be changed before the first call to Next.
	PageSize int

	page *Page
	pos  int
	err  error
}

// Rows returns an iterator over every row of the table. Each call starts from
// the first row.
func (c *Client) Rows(ctx context.Context, project, dataset, table string) *RowIterator {
	return &RowIterator{
		ctx:       c.withLogger(ctx),
		warehouse: c.warehouse,
		project:   project,
		dataset:   dataset,
		table:     table,
		PageSize:  DefaultPageSize,
	}
}

// Next returns the next row keyed by column name. Values which print as NaN
// are replaced with nil. It returns iterator.Done after the last row.
func (it *RowIterator) Next() (map[string]any, error) {
	for {
		if it.err != nil {
			return nil, it.err
		}

		if it.page != nil && it.pos < len(it.page.Rows) {
			row := it.page.Rows[it.pos]
			it.pos++
			return rowToMap(row, it.page.Fields), nil
		}

		token := ""
		if it.page != nil {
			if it.page.NextPageToken == "" {
				it.err = iterator.Done
				continue
			}
			token = it.page.NextPageToken
		}

		p, err := it.warehouse.ReadPage(it.ctx, it.project, it.dataset, it.table, it.PageSize, token)
		if err != nil {
			it.err = xerrors.Errorf("failed to read page of %s.%s: %w", it.dataset, it.table, err)
			continue
		}
		if p == nil {
			it.err = xerrors.Errorf("no page returned for %s.%s at token %q", it.dataset, it.table, token)
			continue
		}
		it.page = p
		it.pos = 0
	}
}

func rowToMap(row []any, fields []string) map[string]any {
	m := make(map[string]any, len(fields))
	for i, v := range row {
		if i >= len(fields) {
			break
		}
		m[fields[i]] = normalizeNaN(v)
	}
	return m
}

func normalizeNaN(v any) any {
	if v == nil {
		return nil
	}
	if strings.EqualFold(fmt.Sprint(v), "nan") {
		return nil
	}
	return v
}
