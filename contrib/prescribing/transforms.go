package prescribing

import (
	"context"

	"go.prescribing.dev/bqtools"
	"golang.org/x/xerrors"
)

// midnight turns a date such as "2017-01-01" into a BigQuery TIMESTAMP literal.
func midnight(date string) string {
	return date + " 00:00:00"
}

// PrescribingTransform converts a row of a formatted prescribing file into
// the prescribing schema.
func PrescribingTransform(_ context.Context, r []string) ([]string, error) {
	if err := bqtools.RequireFields(r, 11); err != nil {
		return nil, xerrors.Errorf("prescribing row: %w", err)
	}

	row := make([]string, 0, len(r)-2)

	// 10: month, as TIMESTAMP.
	// 3 and the last column don't exist in the destination table.
	for i, v := range r[:len(r)-1] {
		switch i {
		case 3:
			continue
		case 10:
			v = midnight(v)
		}
		row = append(row, v)
	}

	return row, nil
}

// StatisticsTransform converts a row of frontend_practicestatistics into the
// practice statistics schema.
func StatisticsTransform(_ context.Context, r []string) ([]string, error) {
	if err := bqtools.RequireFields(r, 1); err != nil {
		return nil, xerrors.Errorf("statistics row: %w", err)
	}

	row := append([]string(nil), r...)

	// 0: month, as TIMESTAMP.
	row[0] = midnight(row[0])

	return row, nil
}

// PresentationTransform converts a row of frontend_presentation into the
// presentation schema.
func PresentationTransform(_ context.Context, r []string) ([]string, error) {
	if err := bqtools.RequireFields(r, 3); err != nil {
		return nil, xerrors.Errorf("presentation row: %w", err)
	}

	row := append([]string(nil), r...)

	// 2: is_generic, Postgres prints booleans as t/f.
	if row[2] == "t" {
		row[2] = "true"
	} else {
		row[2] = "false"
	}

	return row, nil
}

var transforms = map[string]bqtools.Transform{
	Prescribing:        PrescribingTransform,
	PracticeStatistics: StatisticsTransform,
	Presentation:       PresentationTransform,
}

// TransformFor returns the transform for the named schema. Schemas loaded
// as-is, like practice, have none.
func TransformFor(name string) (bqtools.Transform, error) {
	if _, ok := schemas[name]; !ok {
		return nil, xerrors.Errorf("unknown schema %q", name)
	}
	return transforms[name], nil
}
