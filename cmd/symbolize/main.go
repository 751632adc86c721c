// Command symbolize annotates crash logs with source locations from the
// command line, sharing the server's artifact store.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/addr2line-web/addr2line/internal/config"
	"github.com/addr2line-web/addr2line/internal/logging"
)

var version = "dev"

func main() {
	// A missing .env is fine; real env vars win over it.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// options are the persistent flags shared by every subcommand.
type options struct {
	storePath string
	logLevel  string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "symbolize",
		Short: "Annotate addresses in logs with source locations",
		Long: `symbolize finds hexadecimal addresses in log text and appends the source
location each one maps to in a binary's DWARF debug info. Binaries can be
given directly or kept in the artifact store shared with the server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.storePath, "store", "",
		"sqlite database holding artifacts (default: SQLITE_PATH)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"log level: debug, info, warn, error (default: LOG_LEVEL or warn)")

	root.AddCommand(
		newConvertCmd(opts),
		newCleanupCmd(opts),
		newArtifactsCmd(opts),
	)
	return root
}

// load reads the configuration, applies flag overrides and sends logs to
// stderr so stdout carries only results.
func (o *options) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.storePath != "" {
		cfg.Store.Driver = "sqlite"
		cfg.Store.SQLitePath = o.storePath
	}

	level := o.logLevel
	if level == "" && os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	} else if level == "" {
		level = cfg.Logging.Level
	}
	logging.SetupWriter(cmd.ErrOrStderr(), level, cfg.Logging.Format)
	return cfg, nil
}

// readInput reads path, or stdin when path is empty or "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}
