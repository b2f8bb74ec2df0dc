package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-console/internal/app"
	"github.com/noah-isme/enrollment-console/pkg/config"
	"github.com/noah-isme/enrollment-console/pkg/logger"
)

// cli carries the global flags and the console built for one invocation.
type cli struct {
	apiURL  string
	timeout time.Duration
	verbose bool
	output  string

	logger  *zap.Logger
	boot    *app.Bootstrap
	console *app.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "enrollctl",
		Short: "Manage students, courses and enrollments from the terminal",
		Long: `enrollctl loads the three collections from the enrollment backend, applies one
change and prints the result.

Rows are addressed by their backend id. Changes use the same optimistic rules as the
web console: a failed edit or delete is reverted, a create the backend does not confirm
is reported as retained and is not persisted.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.teardown()
		},
	}

	root.PersistentFlags().StringVar(&c.apiURL, "api-url", "", "Backend base URL (default from API_BASE_URL)")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 0, "Per-request timeout (default from API_TIMEOUT)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().StringVarP(&c.output, "output", "o", "table", "Output format: table or json")

	root.AddCommand(
		newStudentsCmd(c),
		newCoursesCmd(c),
		newEnrollmentsCmd(c),
		newDashboardCmd(c),
		newExportCmd(c),
		newImportCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	if c.output != "table" && c.output != "json" {
		return fmt.Errorf("unknown output format %q", c.output)
	}

	var err error
	c.logger, err = logger.NewCLI(c.verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.apiURL != "" {
		cfg.Backend.BaseURL = c.apiURL
	}
	if c.timeout > 0 {
		cfg.Backend.Timeout = c.timeout
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c.boot = app.NewClient(ctx, cfg, nil, c.logger)
	c.console = app.New(cfg, c.boot.Client, nil, c.logger)
	if err := c.console.Load(ctx); err != nil {
		c.logger.Warn("backend data incomplete", zap.String("backend", cfg.Backend.BaseURL), zap.Error(err))
	}
	return nil
}

func (c *cli) teardown() {
	if c.boot != nil {
		_ = c.boot.Close()
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}
