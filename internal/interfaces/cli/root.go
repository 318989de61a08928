// Package cli implements sessionctl, the operator command line for
// SessionSync.
package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/turtacn/SessionSync/internal/config"
	"github.com/turtacn/SessionSync/internal/domain/appointment"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	EnvFile      string
	LogLevel     string
	OutputFormat string
	NoColor      bool
	Timeout      time.Duration
}

// CLIContext carries initialized dependencies through the command tree.  The
// configuration is loaded on first use so offline commands never need one.
type CLIContext struct {
	Logger       logging.Logger
	OutputFormat string
	Timeout      time.Duration

	opts    *RootOptions
	once    sync.Once
	cfg     *config.Config
	cfgErr  error
	loadCfg func(opts *RootOptions) (*config.Config, error)
}

// Config loads the configuration once: --config when given, otherwise
// ./config.yaml or /etc/sessionsync/config.yaml, then SESSIONSYNC_* env vars.
func (c *CLIContext) Config() (*config.Config, error) {
	c.once.Do(func() {
		c.cfg, c.cfgErr = c.loadCfg(c.opts)
	})
	return c.cfg, c.cfgErr
}

// JSON reports whether machine-readable output was requested.
func (c *CLIContext) JSON() bool {
	return c.OutputFormat == OutputJSON
}

// NewRootCommand creates the root command with all global flags and
// subcommands.
func NewRootCommand(deps Dependencies) *cobra.Command {
	deps = deps.withDefaults()
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sessionctl",
		Short: "SessionSync operator CLI",
		Long: "sessionctl converts session times between zones, checks status spellings\n" +
			"and transitions, renders calendar links and exports, and runs the\n" +
			"calendar-link backfill against the configured database.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts, deps)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./config.yaml)")
	pf.StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file preloaded before reading SESSIONSYNC_* variables")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", OutputText, "output format (text, json)")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&opts.Timeout, "timeout", 5*time.Minute, "overall timeout for database commands")

	cmd.AddCommand(
		newConvertCmd(),
		newClassifyCmd(),
		newTransitionCheckCmd(),
		newLinkCmd(),
		newICSCmd(),
		newBackfillCmd(deps),
		newMigrateCmd(deps),
		newVersionCmd(),
	)
	return cmd
}

// persistentPreRun validates the global flags, builds the logger and stores
// the CLIContext.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions, deps Dependencies) error {
	format := strings.ToLower(strings.TrimSpace(opts.OutputFormat))
	if format != OutputText && format != OutputJSON {
		return errors.Validation(fmt.Sprintf("unsupported output format %q; expected text or json", opts.OutputFormat))
	}
	if opts.NoColor && !color.NoColor {
		color.NoColor = true
	}

	logger, err := deps.NewLogger(logging.LogConfig{
		Level:            opts.LogLevel,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	cliCtx := &CLIContext{
		Logger:       logger,
		OutputFormat: format,
		Timeout:      opts.Timeout,
		opts:         opts,
		loadCfg:      deps.LoadConfig,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// loadConfig is the default config loader of the CLI.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	loadOpts := []config.LoadOption{config.WithEnvFile(opts.EnvFile)}
	if opts.ConfigPath != "" {
		loadOpts = append(loadOpts, config.WithConfigPath(opts.ConfigPath))
	} else {
		loadOpts = append(loadOpts, config.WithSearchPaths(".", "/etc/sessionsync"))
	}
	return config.Load(loadOpts...)
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Internal("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute is the main entry point for the CLI application.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd := NewRootCommand(Dependencies{})
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Output helpers
// ---------------------------------------------------------------------------

// printJSON outputs data as indented JSON to stdout.
func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// renderTable writes an aligned table with a header row.
func renderTable(w io.Writer, headers []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.AppendBulk(rows)
	table.Render()
}

// PrintError writes a formatted error message to stderr.  Application errors
// show their code.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	prefix := color.RedString("Error:")
	if code := errors.GetCode(err); code != errors.CodeUnknown {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s [%s] %s\n", prefix, code, errorText(err))
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", prefix, err.Error())
}

// PrintWarning writes a highlighted warning to stderr.
func PrintWarning(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.YellowString("Warning:"), msg)
}

// errorText is the AppError message and detail, plus its cause.
func errorText(err error) string {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return err.Error()
	}
	text := appErr.Message
	if appErr.Detail != "" {
		text += ": " + appErr.Detail
	}
	if appErr.Cause != nil {
		text += ": " + appErr.Cause.Error()
	}
	return text
}

// colorStatus renders a status label in the color of its lifecycle stage.
func colorStatus(s appointment.Status, label string) string {
	switch s {
	case appointment.StatusConfirmed:
		return color.GreenString(label)
	case appointment.StatusRejected:
		return color.RedString(label)
	case appointment.StatusPending:
		return color.YellowString(label)
	case appointment.StatusCompleted:
		return color.CyanString(label)
	default:
		return label
	}
}

//Personal.AI order the ending
