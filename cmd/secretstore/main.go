// Command secretstore reads and writes secrets through a configured secret store.
//
//	secretstore --config secretstore.toml set db-password s3cr3t
//	secretstore get db-password
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/secretstore"
	"github.com/input-output-hk/catalyst-forge-libs/secretstore/bootstrap"
	"github.com/input-output-hk/catalyst-forge-libs/secretstore/config"
)

// version is set at build time via ldflags, e.g.:
//
//	go build -ldflags "-X main.version=1.2.0" ./cmd/secretstore
var version = "dev"

// Exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2
	exitNotFound = 3
)

var (
	// errNotFound marks a lookup of a secret the store does not have.
	errNotFound = errors.New("secret not found")

	// errUsage marks bad flags, arguments or subcommands.
	errUsage = errors.New("usage error")
)

// usageError tags err with errUsage without changing its message.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() []error { return []error{errUsage, e.err} }

// usageArgs wraps an argument validator so its failures are usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// buildMeta holds version and build metadata.
type buildMeta struct {
	Version string
	GoOS    string
	GoArch  string
}

func (m buildMeta) String() string {
	return fmt.Sprintf("secretstore %s %s/%s", m.Version, m.GoOS, m.GoArch)
}

// secretOutput is the JSON shape printed for a secret.
type secretOutput struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func newRootCommand(bm buildMeta) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "secretstore",
		Short:         "Read and write named secrets",
		Long:          "secretstore reads and writes secrets through a cache-aside store over a configured backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Unknown subcommands reach root as positional arguments.
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML configuration file")

	getCmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Print a secret as JSON",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, configPath, func(ctx context.Context, store *secretstore.Store) error {
				return runGet(ctx, cmd, store, args[0])
			})
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <name> <value|->",
		Short: "Write a secret and print the stored secret as JSON",
		Long:  "Write a secret. A value of \"-\" reads the value from standard input, keeping it out of shell history.",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := readValue(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			return withStore(cmd, configPath, func(ctx context.Context, store *secretstore.Store) error {
				return runSet(ctx, cmd, store, args[0], value)
			})
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and build metadata",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), bm.String())
			return nil
		},
	}

	root.AddCommand(getCmd, setCmd, versionCmd)
	return root
}

// withStore loads configuration, builds the store and runs fn with it.
func withStore(cmd *cobra.Command, configPath string, fn func(context.Context, *secretstore.Store) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, closer, err := bootstrap.NewStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closer.Close(); cerr != nil {
			logger.WarnContext(ctx, "failed to release store resources", "error", cerr)
		}
	}()

	return fn(ctx, store)
}

func runGet(ctx context.Context, cmd *cobra.Command, store *secretstore.Store, name string) error {
	secret, err := store.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if secret == nil {
		return fmt.Errorf("secret %q not found: %w", name, errNotFound)
	}
	return printSecret(cmd.OutOrStdout(), secret)
}

func runSet(ctx context.Context, cmd *cobra.Command, store *secretstore.Store, name, value string) error {
	secret, err := store.SetByName(ctx, name, value)
	if err != nil {
		return err
	}
	if secret == nil {
		return fmt.Errorf("repository rejected the write of secret %q", name)
	}
	return printSecret(cmd.OutOrStdout(), secret)
}

func printSecret(w io.Writer, secret *secretstore.Secret) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(secretOutput{Name: secret.Name, Value: secret.Value})
}

// readValue returns arg, or standard input without its trailing newline when arg is "-".
func readValue(stdin io.Reader, arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read value from stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// newLogger builds the process logger. Logs go to w so stdout carries only results.
func newLogger(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}
}

// exitCode maps an error returned by a command to a process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errNotFound):
		return exitNotFound
	case errors.Is(err, errUsage), secretstore.IsArgumentInvalid(err):
		return exitUsage
	default:
		return exitFailure
	}
}

// run executes the CLI with args (without the program name) and returns the exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCommand(buildMeta{Version: version, GoOS: runtime.GOOS, GoArch: runtime.GOARCH})
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitCode(err)
	}
	return exitOK
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
