package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"google.golang.org/api/iterator"
)

func (a *app) rowsCmd() *cobra.Command {
	var (
		dataset string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "rows TABLE",
		Short: "Print rows of a table as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			enc := json.NewEncoder(cmd.OutOrStdout())
			it := c.Rows(cmd.Context(), a.project, dataset, args[0])
			for n := 0; limit <= 0 || n < limit; n++ {
				row, err := it.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					return err
				}
				if err := enc.Encode(row); err != nil {
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "measures", "dataset of the table")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many rows (0 means all)")

	return cmd
}
