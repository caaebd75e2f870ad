package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/andresmejia3/keybench/internal/store"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

// Options holds shared configuration for the bench and inspect commands
type Options struct {
	ImageDir         string
	ImagePrefix      string
	ImageExt         string
	IndexWidth       int
	StartIndex       int
	EndIndex         int
	Detectors        []string
	Descriptors      []string
	Region           string
	FullFrame        bool
	Matcher          string
	Selector         string
	Norm             string
	Ratio            float64
	LimitKeypoints   bool
	MaxKeypoints     int
	BufferSize       int
	DetectorCSV      string
	CombinedCSV      string
	Visualize        bool
	DebugScreenshots bool
	ScreenshotDir    string
	ScreenshotWidth  int
	RunName          string
}

// dbAnnotation marks how a command uses PostgreSQL: "required" commands
// always connect, "optional" ones only when a database is configured.
const dbAnnotation = "db"

var (
	// DB is the global database connection shared by subcommands. It is nil
	// when an optional database was not configured.
	DB *store.Store
	// dbURL is the connection string
	dbURL string
	// logLevel is the minimum slog level printed on stderr
	logLevel string
	// logger is the structured logger handed to the pipeline
	logger = slog.Default()
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "keybench",
	Short:   "Keypoint detector and descriptor benchmark over camera frame sequences",
	Version: Version, // This enables the --version flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(logLevel)
		if err != nil {
			return err
		}
		logger = l
		slog.SetDefault(l)

		url, ok := resolveDBURL(dbURL, cmd.Annotations[dbAnnotation] == "required", os.Getenv)
		if !ok {
			return nil
		}

		// Use the command's context (which will be cancellable) for the connection
		DB, err = store.New(cmd.Context(), url)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// Use Background here because the main context might be cancelled already (due to Ctrl+C)
			// and we still need to send the "Close" command to the DB.
			DB.Close(context.Background())
		}
	},
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string (default: POSTGRES_* environment, then postgres://localhost:5432/keybench)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// resolveDBURL picks the connection string from the flag, then the
// POSTGRES_* environment. Without either, required commands fall back to
// the local default and optional ones skip the database.
func resolveDBURL(flag string, required bool, getenv func(string) string) (string, bool) {
	if flag != "" {
		return flag, true
	}
	if host := getenv("POSTGRES_HOST"); host != "" {
		port := getenv("POSTGRES_PORT")
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
			getenv("POSTGRES_USER"), getenv("POSTGRES_PASSWORD"), host, port, getenv("POSTGRES_DB")), true
	}
	if required {
		return "postgres://localhost:5432/keybench", true
	}
	return "", false
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: "15:04:05",
	})), nil
}
