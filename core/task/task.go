// Package task runs one parameterized query and returns its rows as XML, JSON
// or CSV, either as a string or persisted to a file.
package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fbz-tec/pgxquery/core/config"
	"github.com/fbz-tec/pgxquery/core/db"
	"github.com/fbz-tec/pgxquery/core/exporters"
	"github.com/fbz-tec/pgxquery/core/output"
	"github.com/fbz-tec/pgxquery/core/validation"
	"github.com/fbz-tec/pgxquery/internal/logger"
	"github.com/spf13/afero"
)

var (
	ErrConnection        = errors.New("connection failed")
	ErrQuery             = errors.New("query failed")
	ErrCanceled          = errors.New("canceled")
	ErrUnsupportedFormat = exporters.ErrUnsupportedFormat
	ErrEncoding          = output.ErrUnknownEncoding
)

// QueryParameters is the query text and the values bound to its named placeholders.
type QueryParameters struct {
	Query      string
	Parameters []db.Parameter
}

// FileOutputProperties selects the format of the rows and the file they go to.
type FileOutputProperties struct {
	Export exporters.ExportOptions
	File   exporters.FileOptions
}

type Options struct {
	// ThrowOnFailure returns errors to the caller. When false, failures are
	// reported as an unsuccessful result with a nil error.
	ThrowOnFailure bool
	// ReadOnly rejects anything but SELECT and WITH before connecting.
	ReadOnly bool
}

func DefaultOptions() Options {
	return Options{ThrowOnFailure: true}
}

type QueryResult struct {
	Success bool
	Message string
	Output  string
}

type QueryToFileResult struct {
	Success bool
	Message string
	Path    string
	Rows    int
}

// Runner executes tasks. The zero value is not usable; use NewRunner.
type Runner struct {
	// NewStore opens the database for one call.
	NewStore func(dsn string, timeout time.Duration) db.Store
	// Fs is used when the file options carry no filesystem.
	Fs afero.Fs
}

func NewRunner() *Runner {
	return &Runner{
		NewStore: func(dsn string, timeout time.Duration) db.Store {
			return db.NewPgStore(dsn, timeout)
		},
		Fs: afero.NewOsFs(),
	}
}

var defaultRunner = NewRunner()

// ExecuteQuery runs the query with the default runner.
func ExecuteQuery(ctx context.Context, query QueryParameters, out exporters.ExportOptions, conn config.ConnectionInfo, opts Options) (QueryResult, error) {
	return defaultRunner.ExecuteQuery(ctx, query, out, conn, opts)
}

// ExecuteQueryToFile runs the query with the default runner.
func ExecuteQueryToFile(ctx context.Context, query QueryParameters, out FileOutputProperties, conn config.ConnectionInfo, opts Options) (QueryToFileResult, error) {
	return defaultRunner.ExecuteQueryToFile(ctx, query, out, conn, opts)
}

// ExecuteQuery connects, runs the query and returns the rows rendered in out.Format.
func (r *Runner) ExecuteQuery(ctx context.Context, query QueryParameters, out exporters.ExportOptions, conn config.ConnectionInfo, opts Options) (QueryResult, error) {
	var rendered string
	err := r.run(ctx, query, out, conn, opts, func(ctx context.Context, rows exporters.Rows) error {
		s, err := exporters.ToString(ctx, rows, out)
		if err != nil {
			return err
		}
		rendered = s
		return nil
	})
	if err != nil {
		if opts.ThrowOnFailure {
			return QueryResult{}, err
		}
		return QueryResult{Success: false, Message: err.Error()}, nil
	}

	logger.Debug("Query rendered as %s (%d bytes)", out.Format, len(rendered))
	return QueryResult{Success: true, Output: rendered}, nil
}

// ExecuteQueryToFile connects, runs the query and streams the rows into the
// file. The reported path includes any extension added for compression.
func (r *Runner) ExecuteQueryToFile(ctx context.Context, query QueryParameters, out FileOutputProperties, conn config.ConnectionInfo, opts Options) (QueryToFileResult, error) {
	file := out.File
	if file.Fs == nil {
		file.Fs = r.Fs
	}
	if strings.TrimSpace(file.Path) == "" {
		return fileFailure(opts, fmt.Errorf("output path cannot be empty"))
	}
	if err := validation.ValidateEncoding(file.Encoding); err != nil {
		return fileFailure(opts, err)
	}

	var written int
	err := r.run(ctx, query, out.Export, conn, opts, func(ctx context.Context, rows exporters.Rows) error {
		n, err := exporters.WriteToFile(ctx, rows, out.Export, file)
		written = n
		return err
	})
	if err != nil {
		if written > 0 {
			logger.Warn("%d rows were written to %s before the failure", written, file.Path)
		}
		return fileFailure(opts, err)
	}

	return QueryToFileResult{
		Success: true,
		Path:    exporters.OutputConfig(out.Export, file).FinalPath(),
		Rows:    written,
	}, nil
}

func fileFailure(opts Options, err error) (QueryToFileResult, error) {
	if opts.ThrowOnFailure {
		return QueryToFileResult{}, err
	}
	return QueryToFileResult{Success: false, Message: err.Error()}, nil
}

// run validates the request, opens the store under the call deadline, runs
// the query and hands its rows to export. The store is closed on every path.
func (r *Runner) run(ctx context.Context, query QueryParameters, out exporters.ExportOptions, conn config.ConnectionInfo, opts Options, export func(context.Context, exporters.Rows) error) error {
	if strings.TrimSpace(query.Query) == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrQuery)
	}
	if err := out.Validate(); err != nil {
		return err
	}
	if opts.ReadOnly {
		if err := validation.ValidateQuery(query.Query); err != nil {
			return fmt.Errorf("%w: %w", ErrQuery, err)
		}
	}

	dsn, err := conn.DSN()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	timeout := conn.Timeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	store := r.NewStore(dsn, timeout)
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warn("Failed to close database connection: %v", cerr)
		}
	}()

	if err := store.Connect(ctx); err != nil {
		return classify(ctx, ErrConnection, err)
	}

	rows, err := store.Query(ctx, query.Query, query.Parameters)
	if err != nil {
		return classify(ctx, ErrQuery, err)
	}
	defer rows.Close()

	if err := export(ctx, rows); err != nil {
		if errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, ErrEncoding) {
			return err
		}
		return classify(ctx, ErrQuery, err)
	}

	logger.Debug("Task completed in %v", time.Since(start))
	return nil
}

// classify tags err with kind, or with ErrCanceled when the call context ended.
func classify(ctx context.Context, kind, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		if errors.Is(err, cerr) {
			return fmt.Errorf("%w: %w", ErrCanceled, err)
		}
		return fmt.Errorf("%w: %w: %w", ErrCanceled, cerr, err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}
