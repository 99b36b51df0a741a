package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ggonzalez94/clob-bridge/internal/bridge"
	"github.com/ggonzalez94/clob-bridge/internal/cache"
	"github.com/ggonzalez94/clob-bridge/internal/clob"
	"github.com/ggonzalez94/clob-bridge/internal/config"
	clierr "github.com/ggonzalez94/clob-bridge/internal/errors"
	"github.com/ggonzalez94/clob-bridge/internal/httpx"
	"github.com/ggonzalez94/clob-bridge/internal/journal"
	"github.com/ggonzalez94/clob-bridge/internal/logx"
	"github.com/ggonzalez94/clob-bridge/internal/out"
	"github.com/ggonzalez94/clob-bridge/internal/policy"
	"github.com/ggonzalez94/clob-bridge/internal/schema"
	"github.com/ggonzalez94/clob-bridge/internal/signer"
	"github.com/ggonzalez94/clob-bridge/internal/version"
)

type Runner struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func NewRunner() *Runner {
	return NewRunnerWithIO(os.Stdin, os.Stdout, os.Stderr)
}

func NewRunnerWithIO(stdin io.Reader, stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}
}

type runtimeState struct {
	runner   *Runner
	flags    config.GlobalFlags
	settings config.Settings
	log      zerolog.Logger
	journal  *journal.Store
	cache    *cache.Store
}

// Run executes the CLI and returns the process exit code. Only startup
// failures produce a non-zero code; command failures are answered on stdout.
func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r, log: logx.New(r.stderr, "info", logx.FormatJSON)}
	root := state.newRootCommand()
	root.SetArgs(args)
	root.SetIn(r.stdin)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.ExecuteContext(context.Background())
	state.close()
	if err == nil {
		return 0
	}
	err = normalizeRunError(err)
	state.log.Error().Str("error_type", clierr.TypeName(err)).Err(err).Msg("startup failed")
	return clierr.ExitCode(err)
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "JSON-line bridge to the Polymarket CLOB",
		Long: "Reads one JSON command per line on stdin and writes one JSON response per line on stdout.\n" +
			"Logs go to stderr.",
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "help", "version", "schema":
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "load configuration", err)
			}
			s.settings = settings
			s.log = logx.New(s.runner.stderr, settings.LogLevel, settings.LogFormat)
			return nil
		},
		RunE: s.serve,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "parse flags", err)
	})

	cmd.PersistentFlags().StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&s.flags.EnvFile, "env-file", "", "Path to a .env file (default ./.env when present)")
	cmd.PersistentFlags().StringVar(&s.flags.KeySource, "key-source", "", "Private key source: auto|env|file|keystore")
	cmd.PersistentFlags().StringVar(&s.flags.CLOBURL, "clob-url", "", "CLOB API base URL")
	cmd.PersistentFlags().StringVar(&s.flags.Timeout, "timeout", "", "Exchange request timeout")
	cmd.PersistentFlags().IntVar(&s.flags.Retries, "retries", -1, "Retries per exchange request")
	cmd.PersistentFlags().StringVar(&s.flags.LogLevel, "log-level", "", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&s.flags.LogFormat, "log-format", "", "Log format: json|console")
	cmd.PersistentFlags().StringVar(&s.flags.EnableCommands, "enable-commands", "", "Allowlist line commands (comma-separated)")
	cmd.PersistentFlags().BoolVar(&s.flags.MarketsCache, "markets-cache", false, "Answer repeated markets commands from a local cache within the TTL")
	cmd.PersistentFlags().BoolVar(&s.flags.NoJournal, "no-journal", false, "Disable the order journal")

	cmd.AddCommand(s.newServeCommand())
	cmd.AddCommand(s.newSchemaCommand(cmd))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func (s *runtimeState) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the line protocol on stdin/stdout (default)",
		Args:  cobra.NoArgs,
		RunE:  s.serve,
	}
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.CLIVersion)
			return nil
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

func (s *runtimeState) newSchemaCommand(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "schema [cmd]",
		Short: "Print the flags and line commands as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload any = schema.Build(root, version.CLIVersion, bridge.Describe())
			if len(args) == 1 {
				c, err := schema.Lookup(bridge.Describe(), args[0])
				if err != nil {
					return clierr.Wrap(clierr.CodeUsage, "schema", err)
				}
				payload = c
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		},
	}
}

func (s *runtimeState) serve(cmd *cobra.Command, _ []string) error {
	settings := s.settings
	wallet, err := signer.NewLocalSignerFromEnv(settings.KeySource)
	if err != nil {
		return err
	}

	runID := newRunID(s.runner.now())
	opts := bridge.Options{
		RunID:                runID,
		SignerAddress:        wallet.Address().Hex(),
		DefaultSignatureType: settings.DefaultSignatureType,
		DefaultFunder:        settings.DefaultFunder,
		Policy:               policy.NewAllowlist(settings.EnableCommands),
		CacheScope:           settings.CLOBBaseURL,
		MarketsTTL:           settings.MarketsTTL,
	}
	log := s.log.With().Str("run_id", runID).Logger()

	if settings.JournalEnabled {
		store, err := journal.Open(settings.JournalPath, settings.JournalLockPath)
		if err != nil {
			log.Warn().Err(err).Str("path", settings.JournalPath).Msg("order journal unavailable, continuing without it")
		} else {
			s.journal = store
			opts.Journal = store
		}
	}
	if settings.CacheEnabled {
		store, err := cache.Open(settings.CachePath, settings.CacheLockPath)
		if err != nil {
			log.Warn().Err(err).Str("path", settings.CachePath).Msg("markets cache unavailable, continuing without it")
		} else {
			s.cache = store
			opts.Cache = store
		}
	}

	client := clob.New(httpx.New(settings.Timeout, settings.Retries), settings.CLOBBaseURL, settings.ChainID)
	dispatcher := bridge.NewDispatcher(bridge.NewExchange(client, wallet), out.NewEmitter(s.runner.stdout), opts, s.log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ev := log.Info().
		Str("signer_address", opts.SignerAddress).
		Str("clob_url", settings.CLOBBaseURL).
		Int64("chain_id", settings.ChainID)
	if settings.DefaultSignatureType != nil {
		ev = ev.Int("default_signature_type", *settings.DefaultSignatureType)
	}
	if settings.DefaultFunder != nil {
		ev = ev.Str("default_funder", *settings.DefaultFunder)
	}
	ev.Msg("bridge ready")

	if err := dispatcher.Serve(ctx, s.runner.stdin); err != nil {
		return clierr.Wrap(clierr.CodeInternal, "write response", err)
	}
	return nil
}

func (s *runtimeState) close() {
	if s.journal != nil {
		_ = s.journal.Close()
	}
	if s.cache != nil {
		_ = s.cache.Close()
	}
}

// newRunID is unique per process: start time plus a random suffix.
func newRunID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("run_%d_%s", now.UnixMilli(), suffix)
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return clierr.Wrap(clierr.CodeUsage, "invalid command input", err)
	}
	return clierr.Wrap(clierr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"flag needs an argument",
		"accepts ",
		"invalid argument",
		"invalid args",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
