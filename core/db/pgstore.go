package db

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fbz-tec/pgxquery/internal/logger"
	"github.com/jackc/pgx/v5"
)

// PgStore represents a PostgreSQL database store connection.
type PgStore struct {
	dsn     string
	timeout time.Duration
	conn    *pgx.Conn
}

// NewPgStore creates a store for dsn. A positive timeout bounds connecting and
// is applied as the session statement_timeout.
func NewPgStore(dsn string, timeout time.Duration) *PgStore {
	return &PgStore{dsn: dsn, timeout: timeout}
}

// Connect establishes a connection to the PostgreSQL database.
// Returns an error if the connection fails or if ping fails.
func (s *PgStore) Connect(ctx context.Context) error {
	if s.conn != nil {
		return nil // already connected
	}

	cfg, err := pgx.ParseConfig(s.dsn)
	if err != nil {
		return fmt.Errorf("invalid connection string: %w", err)
	}
	if s.timeout > 0 {
		cfg.ConnectTimeout = s.timeout
		cfg.RuntimeParams["statement_timeout"] = strconv.FormatInt(s.timeout.Milliseconds(), 10)
		logger.Debug("Connection timeout: %v", s.timeout)
	}

	logger.Debug("Attempting to connect to database host: %s", sanitizeDSN(s.dsn))

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}

	logger.Debug("Connection established, verifying connectivity (ping)...")

	if err := conn.Ping(ctx); err != nil {
		conn.Close(context.Background())
		return fmt.Errorf("unable to ping database: %w", err)
	}

	logger.Debug("Database ping successful")
	s.conn = conn
	return nil
}

// Close closes the database connection.
// Returns an error if the close operation fails.
func (s *PgStore) Close() error {
	if s.conn == nil {
		return nil
	}
	logger.Debug("Closing database connection...")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.conn.Close(ctx)
	s.conn = nil
	if err != nil {
		logger.Debug("Error closing database connection: %v", err)
	} else {
		logger.Debug("Database connection closed successfully")
	}
	return err
}

// Query rewrites the named placeholders of sql, binds params and returns the result rows.
// Returns an error if the query execution fails or if the store is not connected.
func (s *PgStore) Query(ctx context.Context, sql string, params []Parameter) (pgx.Rows, error) {
	if s.conn == nil {
		logger.Debug("No active database connection; query cannot be executed")
		return nil, fmt.Errorf("database not connected")
	}

	bound, args, err := BindNamed(sql, params)
	if err != nil {
		return nil, err
	}

	logger.Debug("Executing SQL query with %d parameter(s)...", len(args))
	logger.Debug("Query: %s", bound)

	startTime := time.Now()
	rows, err := s.conn.Query(ctx, bound, args...)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}

	logger.Debug("Query executed successfully in %v", time.Since(startTime))
	return rows, nil
}

var keywordPassword = regexp.MustCompile(`(?i)(password\s*=\s*)('(?:[^'\\]|\\.)*'|\S+)`)

// sanitizeDSN masks the password inside a PostgreSQL DSN before logging.
func sanitizeDSN(dsn string) string {
	if !strings.Contains(dsn, "://") {
		return keywordPassword.ReplaceAllString(dsn, "${1}***")
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "<invalid-dsn>"
	}

	var userInfo string
	if u.User != nil {
		username := u.User.Username()
		if _, hasPwd := u.User.Password(); hasPwd {
			userInfo = fmt.Sprintf("%s:***@", username)
		} else {
			userInfo = fmt.Sprintf("%s@", username)
		}
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	return fmt.Sprintf("%s://%s%s%s", u.Scheme, userInfo, u.Host, path)
}
