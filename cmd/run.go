package cmd

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fbz-tec/pgxquery/core/task"
	"github.com/fbz-tec/pgxquery/internal/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run TASKFILE",
	Short: "Run a query described by a YAML task file",
	Long: heredoc.Doc(`
		Run the query described by a YAML task file. When the file has a "file"
		section the rows are written there, otherwise they are printed to stdout.
		An empty connection string in the task falls back to the connection flags
		and the environment.
	`),
	Example: heredoc.Doc(`
		# task.yaml
		connection:
		  connectionString: "Host=localhost;Database=sales;User Id=report"
		  timeoutSeconds: 60
		query: SELECT id, total FROM orders WHERE created >= :since
		parameters:
		  - name: since
		    value: 2024-01-01
		output:
		  format: xml
		  xml: {rootElementName: Orders, rowElementName: Order}
		file:
		  path: orders.xml
		  encoding: windows-1252

		pgxquery run task.yaml
	`),
	Args: cobra.ExactArgs(1),
	RunE: runTask,
}

func runTask(cmd *cobra.Command, args []string) error {
	t, err := task.LoadFile(afero.NewOsFs(), args[0])
	if err != nil {
		return err
	}

	if t.Connection.ConnectionString == "" {
		conn, err := connectionInfo()
		if err != nil {
			return err
		}
		if t.Connection.TimeoutSeconds > 0 {
			conn.TimeoutSeconds = t.Connection.TimeoutSeconds
		}
		t.Connection = conn
	}

	if t.File != nil {
		return writeFile(cmd, t.Query, t.Output, *t.File, t.Connection, t.Options)
	}

	res, err := task.ExecuteQuery(cmd.Context(), t.Query, t.Output, t.Connection, t.Options)
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
