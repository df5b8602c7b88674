package cmd

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fbz-tec/pgxquery/core/task"
	"github.com/fbz-tec/pgxquery/internal/logger"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a query and print the rows to stdout",
	Example: heredoc.Doc(`
		# Rows as JSON
		pgxquery query -s "SELECT * FROM products WHERE id = :id" -P id:int=42 -f json

		# Rows as XML with custom element names
		pgxquery query -F orders.sql -f xml --xml-root-tag Orders --xml-row-tag Order

		# CSV with a pipe delimiter and LF line breaks
		pgxquery query -s "SELECT * FROM users" -D pipe --line-break LF
	`),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("Validating query parameters")
		return validateQueryFlags()
	},
	RunE: runQuery,
}

func init() {
	addQueryFlags(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	query, err := queryParameters()
	if err != nil {
		return err
	}
	out, err := exportOptions()
	if err != nil {
		return err
	}
	conn, err := connectionInfo()
	if err != nil {
		return err
	}

	res, err := task.ExecuteQuery(cmd.Context(), query, out, conn, taskOptions())
	if err != nil {
		return err
	}
	if !res.Success {
		logger.Error("Query failed: %s", res.Message)
		return nil
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), res.Output)
	return err
}
