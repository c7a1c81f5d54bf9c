// Command qca runs qualitative comparative analyses from YAML analysis files.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"goqca/adapters/sqlstore"
	"goqca/app"
	"goqca/internal"
	"goqca/internal/cache"
	"goqca/internal/config"
	"goqca/internal/errors"
	"goqca/ports"
)

// env is the state shared by every command after configuration loads
type env struct {
	cfg    *config.Config
	logger *internal.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for _, hint := range errors.Hints(err) {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
	}
	stop()
	os.Exit(errors.ExitCode(err))
}

func newRootCmd() *cobra.Command {
	e := &env{}
	var configPath string

	v := config.New()
	rootCmd := &cobra.Command{
		Use:           "qca",
		Short:         "Qualitative Comparative Analysis engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional
			_ = godotenv.Load()

			if err := config.ReadFile(v, configPath); err != nil {
				return err
			}
			cfg, err := config.FromViper(v)
			if err != nil {
				return err
			}
			e.cfg = cfg

			level := internal.ParseLogLevel(cfg.Log.Level)
			if cfg.Log.JSON {
				e.logger = internal.NewJSONLogger(level, os.Stderr)
			} else {
				e.logger = internal.NewLogger(level)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = e.logger.Sync()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a YAML config file")
	flags.String("log-level", "INFO", "Log level: ERROR|WARN|INFO|DEBUG|TRACE")
	flags.String("backend", "gonum", "Numeric backend: gonum|native")
	flags.String("store-dsn", "", "Run store data source name")
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("engine.backend", flags.Lookup("backend"))
	_ = v.BindPFlag("store.dsn", flags.Lookup("store-dsn"))

	rootCmd.AddCommand(
		newCalibrateCmd(e),
		newTruthTableCmd(e),
		newMinimizeCmd(e),
		newAnalyzeCmd(e),
		newNecessityCmd(e),
		newRunsCmd(e),
		newConfigCmd(e),
	)
	return rootCmd
}

// service builds an analysis service from the loaded configuration. The
// returned closer releases the run store, if one was opened.
func (e *env) service(ctx context.Context, withStore bool) (*app.AnalysisService, func(), error) {
	caps, err := e.cfg.Capabilities()
	if err != nil {
		return nil, nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}

	var store ports.RunStore
	closer := func() {}
	if withStore {
		db, err := e.openStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		store = sqlstore.NewRunRepository(db)
		closer = func() { db.Close() }
	}

	svc := app.NewAnalysisService(caps, cache.NewSolutionCache(e.cfg.Engine.CacheTTL), store, e.logger).
		WithParallelism(e.cfg.Engine.Parallelism)
	return svc, closer, nil
}

func (e *env) openStore(ctx context.Context) (*sqlx.DB, error) {
	if e.cfg.Store.DSN == "" {
		return nil, errors.ConfigInvalid("store.dsn is required for run storage (set QCA_STORE_DSN or --store-dsn)")
	}
	driver := e.cfg.Store.Driver
	if driver == "" {
		driver = "sqlite3"
	}
	return sqlstore.Open(ctx, driver, e.cfg.Store.DSN)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
