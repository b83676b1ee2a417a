package bqtools

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/extrame/xls"
	"gitlab.com/osaki-lab/iowrapper"
	"golang.org/x/xerrors"
)

// RowReader reads source records one by one. Read returns io.EOF after the
// last record.
type RowReader interface {
	Read() ([]string, error)
}

// Parser parses a source stream into records.
type Parser func(context.Context, io.Reader) (RowReader, error)

// CSVParser provides a parser to parse CSV files. Records may have differing
// numbers of fields; the loader checks the shape after transformation.
func CSVParser() Parser {
	return func(_ context.Context, r io.Reader) (RowReader, error) {
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		return cr, nil
	}
}

// XLSParser provides a parser to read the given sheet of an Excel 97 workbook.
// Rows whose cells are all empty are skipped.
func XLSParser(sheet int) Parser {
	getRow := func(s *xls.WorkSheet, row int) (r *xls.Row, ok bool) {
		defer func() {
			if recover() != nil {
				r, ok = nil, false
			}
		}()

		r = s.Row(row)
		return r, r != nil
	}

	return func(_ context.Context, r io.Reader) (RowReader, error) {
		wb, err := xls.OpenReader(iowrapper.NewSeeker(r), "utf-8")
		if err != nil {
			return nil, xerrors.Errorf("failed to open xls file: %w", err)
		}

		s := wb.GetSheet(sheet)
		if s == nil {
			return nil, xerrors.Errorf("sheet %d not found", sheet)
		}

		records := [][]string{}

		for i := 0; i <= int(s.MaxRow); i++ {
			row, ok := getRow(s, i)
			if !ok {
				continue
			}

			record := []string{}
			empty := true
			for col := row.FirstCol(); col < row.LastCol(); col++ {
				v := row.Col(col)
				if v != "" {
					empty = false
				}
				record = append(record, v)
			}

			if !empty {
				records = append(records, record)
			}
		}

		return &sliceReader{records: records}, nil
	}
}

type sliceReader struct {
	records [][]string
	pos     int
}

func (r *sliceReader) Read() ([]string, error) {
	if r.pos >= len(r.records) {
		return nil, io.EOF
	}
	rec := r.records[r.pos]
	r.pos++
	return rec, nil
}
