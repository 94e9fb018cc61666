package app

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/config"
	"github.com/danielpatrickdp/sus-query/go-controller/internal/logging"
)

// #endregion

// #region exit-codes

// Exit codes shared by every binary.
const (
	ExitOK      = 0
	ExitRuntime = 1
	ExitUsage   = 2
)

// UsageError marks bad arguments or flags.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var usage *UsageError
	if errors.As(err, &usage) || errors.Is(err, config.ErrInvalidConfig) {
		return ExitUsage
	}
	return ExitRuntime
}

// UsageArgs wraps a cobra argument validator so its failures exit with
// ExitUsage.
func UsageArgs(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := v(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}

// #endregion

// #region bootstrap

// Bootstrap loads configuration from path (empty searches the defaults)
// and builds the logger it names. level overrides log.level when set.
func Bootstrap(path, level string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if level != "" {
		cfg.Log.Level = level
	}
	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, &UsageError{Err: err}
	}
	return cfg, logger, nil
}

// Execute runs root with a context canceled on SIGINT or SIGTERM and exits
// the process with the mapped code.
func Execute(root *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root.SilenceUsage = true
	root.SilenceErrors = true
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(ExitCode(err))
}

// #endregion
