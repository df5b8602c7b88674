package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fbz-tec/pgxquery/core/config"
	"github.com/fbz-tec/pgxquery/internal/logger"
	"github.com/fbz-tec/pgxquery/internal/version"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool
	logFile string
	// Connection flags
	dbHost     string
	dbPort     int
	dbUser     string
	dbName     string
	dbPassword string
	connString string
	timeoutSec int
)

var rootCmd = &cobra.Command{
	Use:   "pgxquery",
	Short: "Run parameterized PostgreSQL queries and render the rows as XML, JSON or CSV",
	Long: heredoc.Doc(`
		Run a parameterized SQL query against PostgreSQL and serialize the result rows.

		Supported output formats:
		 • CSV  - delimited text with header sanitizing and date quoting
		 • JSON - an array of objects, one per row
		 • XML  - a root element with one row element per row

		Connection settings are read from flags, then from the environment and a
		.env file (DB_HOST, DB_PORT, DB_USER, DB_PASS, DB_NAME, DB_SSLMODE, DB_TIMEOUT).
	`),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose && quiet {
			return fmt.Errorf("error: Cannot use --verbose and --quiet flags together")
		}
		if quiet {
			logger.SetQuiet(true)
			logger.SetVerbose(false)
		} else {
			logger.SetVerbose(verbose)
		}
		if logFile != "" {
			logger.SetLogFile(logFile)
		}
		logger.Debug("Version: %s, Build: %s, Commit: %s", version.AppVersion, version.BuildTime, version.GitCommit)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.SortFlags = false

	// Connection flags (PostgreSQL-compatible)
	flags.StringVarP(&dbHost, "host", "H", "", "Database host (overrides .env and environment)")
	flags.IntVarP(&dbPort, "port", "p", 0, "Database port (overrides .env and environment)")
	flags.StringVarP(&dbUser, "user", "U", "", "Database username (overrides .env and environment)")
	flags.StringVarP(&dbName, "database", "d", "", "Database name (overrides .env and environment)")
	flags.StringVar(&dbPassword, "password", "", "Database password (overrides .env and environment)")
	flags.StringVar(&connString, "dsn", "", "Connection string: postgres:// URL, libpq keywords or Host=..;Database=..;User Id=..")
	flags.IntVar(&timeoutSec, "timeout", 0, "Seconds allowed for connecting, querying and formatting (default DB_TIMEOUT or 30)")

	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output with detailed information")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Enable quiet mode: only display error messages")
	flags.StringVar(&logFile, "log-file", "", "Also write log lines to this file (rotated)")

	rootCmd.AddCommand(queryCmd, toFileCmd, runCmd, versionCmd)
}

// Execute runs the CLI. Ctrl-C cancels the running query between rows.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logger.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// connectionInfo merges the connection flags over the environment.
func connectionInfo() (config.ConnectionInfo, error) {
	cfg := config.LoadConfig()

	if connString != "" {
		logger.Debug("Using connection string from --dsn flag")
		info := config.ConnectionInfo{ConnectionString: connString, TimeoutSeconds: timeoutSec}
		if timeoutSec <= 0 && os.Getenv("DB_TIMEOUT") != "" {
			info.TimeoutSeconds = cfg.DBTimeout
		}
		return info, nil
	}

	logger.Debug("Loading configuration from environment and flags")
	if dbHost != "" {
		cfg.DBHost = dbHost
		logger.Debug("Overriding DB host from flag: %s", dbHost)
	}
	if dbPort != 0 {
		cfg.DBPort = dbPort
		logger.Debug("Overriding DB port from flag: %d", dbPort)
	}
	if dbUser != "" {
		cfg.DBUser = dbUser
		logger.Debug("Overriding DB user from flag: %s", dbUser)
	}
	if dbName != "" {
		cfg.DBName = dbName
		logger.Debug("Overriding DB name from flag: %s", dbName)
	}
	if dbPassword != "" {
		cfg.DBPass = dbPassword
		logger.Debug("Overriding DB password from flag (hidden)")
	}
	if timeoutSec > 0 {
		cfg.DBTimeout = timeoutSec
	}

	if err := cfg.Validate(); err != nil {
		return config.ConnectionInfo{}, fmt.Errorf("configuration error: %w", err)
	}
	logger.Debug("Configuration loaded: host=%s port=%d database=%s user=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser)
	return cfg.ConnectionInfo(), nil
}
