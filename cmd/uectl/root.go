package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jaydenhoang5291/ue-profile/internal/client"
	"github.com/jaydenhoang5291/ue-profile/internal/config"
	"github.com/jaydenhoang5291/ue-profile/internal/console"
	"github.com/jaydenhoang5291/ue-profile/internal/observability"
)

// Repository is the profile API used by the commands.
type Repository interface {
	console.ProfileRepository
	Export(ctx context.Context, supi string) ([]byte, error)
	Close() error
}

// app holds the state shared by all commands.
type app struct {
	// Flags
	cfgFile string
	server  string
	token   string
	output  string
	timeout time.Duration
	verbose bool

	out    io.Writer
	errOut io.Writer

	logger *zap.Logger
	repo   Repository

	// newRepo builds the repository from the loaded configuration.
	newRepo func(cfg *config.Config, logger *zap.Logger) (Repository, error)
}

// newRootCmd builds the command tree writing to out and errOut.
func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{
		out:     out,
		errOut:  errOut,
		newRepo: newHTTPRepository,
	}

	cmd := &cobra.Command{
		Use:   "uectl",
		Short: "Manage simulated UE profiles",
		Long: `uectl creates, edits, generates and exports the UE profiles stored in a
UE profile repository.

Fields are addressed by path, e.g. plmnid.mcc or sessions.0.slice.sst, and
edited with --set, --add, --remove and --merge.`,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(_ *cobra.Command, _ []string) { a.teardown() },
		SilenceUsage:      true,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	flags.StringVar(&a.server, "server", "", "repository base URL (overrides client.base_url)")
	flags.StringVar(&a.token, "token", "", "API token (overrides client.token)")
	flags.StringVarP(&a.output, "output", "o", formatTable, "output format: table, json, yaml")
	flags.DurationVar(&a.timeout, "timeout", 0, "request timeout (overrides client.timeout)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")

	cmd.AddCommand(
		a.newListCmd(),
		a.newGetCmd(),
		a.newCreateCmd(),
		a.newEditCmd(),
		a.newGenerateCmd(),
		a.newDeleteCmd(),
		a.newExportCmd(),
		a.newTemplateCmd(),
	)
	return cmd
}

// setup loads configuration and connects the repository client.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := validateFormat(a.output); err != nil {
		return err
	}

	env := "cli"
	if a.verbose {
		env = "development"
	}
	logger, err := observability.InitLogger(env)
	if err != nil {
		return err
	}
	a.logger = logger.Logger

	// Commands that never reach the repository stop here.
	if cmd.Annotations[annotationOffline] == "true" {
		return nil
	}

	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.server != "" {
		cfg.Client.BaseURL = a.server
	}
	if a.token != "" {
		cfg.Client.Token = a.token
	}
	if a.timeout > 0 {
		cfg.Client.Timeout = a.timeout
	}
	if err := cfg.ValidateClient(); err != nil {
		return err
	}

	a.repo, err = a.newRepo(cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	a.logger.Debug("using repository", zap.String("base_url", cfg.Client.BaseURL))
	return nil
}

func (a *app) teardown() {
	if a.repo != nil {
		_ = a.repo.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// annotationOffline marks commands that run without a repository.
const annotationOffline = "uectl/offline"

func newHTTPRepository(cfg *config.Config, logger *zap.Logger) (Repository, error) {
	return client.New(&client.Config{
		BaseURL:       cfg.Client.BaseURL,
		Token:         cfg.Client.Token,
		Timeout:       cfg.Client.Timeout,
		RetryAttempts: 2,
		RetryDelay:    500 * time.Millisecond,
		Logger:        logger,
	})
}
