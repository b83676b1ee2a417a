package prescribing

import (
	"context"

	"go.prescribing.dev/bqtools"
	"golang.org/x/xerrors"
)

// Destination dataset and source tables of the Postgres loads.
const (
	Dataset = "hscic"

	StatisticsSourceTable   = "frontend_practicestatistics"
	PresentationSourceTable = "frontend_presentation"
)

// LoadPrescribingFromFile loads a formatted prescribing file.
func LoadPrescribingFromFile(ctx context.Context, c *bqtools.Client, dataset, table, path string) (*bqtools.LoadResult, error) {
	return c.LoadFile(ctx, dataset, table, path, MustSchema(Prescribing), PrescribingTransform)
}

// StatisticsRequest is the load of frontend_practicestatistics into
// hscic.practice_statistics.
func StatisticsRequest() *bqtools.PostgresLoadRequest {
	schema := MustSchema(PracticeStatistics)

	// The source table names two columns differently.
	cols := schema.Names()
	cols[0] = "date"
	cols[len(cols)-1] = "practice_id"

	return &bqtools.PostgresLoadRequest{
		Dataset:     Dataset,
		Table:       PracticeStatistics,
		Schema:      schema,
		SourceTable: StatisticsSourceTable,
		Columns:     cols,
		Transform:   StatisticsTransform,
	}
}

// PresentationRequest is the load of frontend_presentation into
// hscic.presentation.
func PresentationRequest() *bqtools.PostgresLoadRequest {
	return &bqtools.PostgresLoadRequest{
		Dataset:     Dataset,
		Table:       Presentation,
		Schema:      MustSchema(Presentation),
		SourceTable: PresentationSourceTable,
		Transform:   PresentationTransform,
	}
}

// LoadStatisticsFromPostgres replaces hscic.practice_statistics.
func LoadStatisticsFromPostgres(ctx context.Context, c *bqtools.Client) (*bqtools.LoadResult, error) {
	return c.LoadFromPostgres(ctx, StatisticsRequest())
}

// LoadPresentationFromPostgres replaces hscic.presentation.
func LoadPresentationFromPostgres(ctx context.Context, c *bqtools.Client) (*bqtools.LoadResult, error) {
	return c.LoadFromPostgres(ctx, PresentationRequest())
}

var postgresRequests = map[string]func() *bqtools.PostgresLoadRequest{
	PracticeStatistics: StatisticsRequest,
	Presentation:       PresentationRequest,
}

// PostgresRequest returns the Postgres load of the named table.
func PostgresRequest(name string) (*bqtools.PostgresLoadRequest, error) {
	f, ok := postgresRequests[name]
	if !ok {
		return nil, xerrors.Errorf("no postgres source for %q", name)
	}
	return f(), nil
}

// PostgresTables lists the tables PostgresRequest knows.
func PostgresTables() []string {
	return []string{PracticeStatistics, Presentation}
}
