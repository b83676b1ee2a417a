/*
Package bqtools moves tabular data into BigQuery and runs aggregation queries
against it.

A Client wraps a Warehouse, normally a *BigQueryWarehouse:

	w, err := bqtools.NewBigQueryWarehouse(ctx, "ebmdatalab")
	if err != nil {
		return err
	}
	defer w.Close()

	c, err := bqtools.New(w, bqtools.WithLogLevel("debug"))
	if err != nil {
		return err
	}

Loads stage transformed records in a temporary file and replace the whole
destination table, creating it when it doesn't exist:

	res, err := c.LoadFile(ctx, "hscic", "prescribing", "prescribing.csv",
		prescribing.MustSchema(prescribing.Prescribing), prescribing.PrescribingTransform)

LoadFromPostgres unloads a PostgreSQL table with COPY using DB_NAME, DB_USER,
DB_PASS and DB_HOST from the environment, and LoadObject reads from Cloud
Storage.

Query writes results into the results dataset and annotates them with the
bytes billed and an estimated cost:

	res, err := c.Query(ctx, &bqtools.QueryRequest{
		Project: "ebmdatalab",
		Table:   "practice_items",
		SQL:     "SELECT practice, SUM(items) FROM [ebmdatalab:hscic.prescribing] GROUP BY practice",
	})

Rows iterates over a table with NaN values reported as nil:

	it := c.Rows(ctx, "ebmdatalab", "measures", "practice_items")
	for {
		row, err := it.Next()
		if err == iterator.Done {
			break
		}
		...
	}
*/
package bqtools
