package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spiegelsync/spiegel/internal/auth"
	"github.com/spiegelsync/spiegel/internal/config"
	"github.com/spiegelsync/spiegel/internal/crawler"
	"github.com/spiegelsync/spiegel/internal/local"
	logpkg "github.com/spiegelsync/spiegel/internal/log"
	"github.com/spiegelsync/spiegel/internal/output"
	"github.com/spiegelsync/spiegel/internal/prompt"
)

// strategyFactories maps the config "type" field of a crawler section
// to a factory for its strategy. Each factory receives the section and
// the resolved authenticator.
//
// Design decision: the registry lives here in the CLI rather than in a
// library package. Strategies are plugins from the engine's point of
// view; which ones a binary ships is a composition decision of that
// binary.
var strategyFactories = map[string]func(cfg config.CrawlerConfig, authn auth.Authenticator) (crawler.Strategy, error){
	"local": func(cfg config.CrawlerConfig, _ auth.Authenticator) (crawler.Strategy, error) {
		return local.New(cfg.Target)
	},
}

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [crawler...]",
		Short: "Run the configured crawlers",
		Long: `Run executes the crawlers declared in the configuration file.

Without arguments every configured crawler runs, in name order. With
arguments only the named crawlers run.

Examples:
  # Run all configured crawlers
  spiegel run

  # Run only one crawler
  spiegel run my-course

  # Use a custom configuration file
  spiegel run -c myconfig.yaml`,
		Args: cobra.ArbitraryArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: spiegel.yaml in current or XDG config directory)")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, args []string) error {
	cf, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	names, err := selectCrawlers(cf, args)
	if err != nil {
		return err
	}

	logger := logpkg.NewLogger(os.Stderr, getVerboseFlag(cmd))
	slog.SetDefault(logger)

	// Handle interrupt signals for graceful shutdown: the current run
	// is aborted, its ledger is still persisted.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	terminal := prompt.NewTerminal(os.Stdin, os.Stderr, int(os.Stdin.Fd()))
	authenticators := make(map[string]auth.Authenticator, len(cf.Auth))
	for name, a := range cf.Auth {
		authenticators[name] = auth.NewSimple(name, a.Username, a.Password, terminal)
	}

	var errs []error
	for _, name := range names {
		section := cf.Crawlers[name]

		c, strategy, err := buildCrawler(name, section, authenticators[section.Auth], terminal, logger)
		if err != nil {
			return err
		}

		if err := c.Run(ctx, strategy); err != nil {
			logger.Error("crawler failed", "crawler", name, "error", err)
			errs = append(errs, err)
		}
		printSummary(cmd.OutOrStdout(), c)

		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
	}
	return errors.Join(errs...)
}

// buildCrawler assembles one crawler and its strategy from a validated
// configuration section.
func buildCrawler(
	name string,
	section config.CrawlerConfig,
	authn auth.Authenticator,
	prompter output.Prompter,
	logger *slog.Logger,
) (*crawler.Crawler, crawler.Strategy, error) {
	factory, ok := strategyFactories[section.Type]
	if !ok {
		return nil, nil, fmt.Errorf("crawler %q: unknown crawler type %q", name, section.Type)
	}
	strategy, err := factory(section, authn)
	if err != nil {
		return nil, nil, fmt.Errorf("crawler %q: %w", name, err)
	}

	// Values were validated at load time; parse errors here would be
	// programming errors.
	redownload, err := output.ParseRedownload(section.Redownload)
	if err != nil {
		return nil, nil, fmt.Errorf("crawler %q: %w", name, err)
	}
	onConflict, err := output.ParseOnConflict(section.OnConflict)
	if err != nil {
		return nil, nil, fmt.Errorf("crawler %q: %w", name, err)
	}

	c, err := crawler.New(name, crawler.Options{
		OutputDir:    section.OutputDir,
		Redownload:   redownload,
		OnConflict:   onConflict,
		Transform:    section.Transform,
		MaxTasks:     section.MaxConcurrentTasks,
		MaxDownloads: section.MaxConcurrentDownloads,
		TaskDelay:    section.TaskDelay(),
		Prompter:     prompter,
		Logger:       logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return c, strategy, nil
}

// printSummary writes a one-line outcome per crawler.
func printSummary(w io.Writer, c *crawler.Crawler) {
	var duplicates, conflicts int
	for _, e := range c.Report().Entries() {
		if e.Duplicate {
			duplicates++
		}
		if e.Conflict {
			conflicts++
		}
	}

	state := "ok"
	if !c.ErrorFree() {
		state = "with errors"
	}
	fmt.Fprintf(w, "%s: %d files tracked, %d duplicates, %d conflicts (%s)\n",
		c.Name(), c.Report().Len(), duplicates, conflicts, state)
}

// loadConfigFromFlags resolves and loads the configuration file.
// An explicitly specified path must exist; otherwise the default search
// locations are tried.
func loadConfigFromFlags(cmd *cobra.Command) (*config.File, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	path := config.FindConfigFile(configPath)
	if path == "" {
		if configPath != "" {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
		return nil, fmt.Errorf("no %s found (run 'spiegel init' to create one)", config.DefaultConfigFile)
	}

	return config.Load(path)
}

// selectCrawlers resolves the positional arguments to crawler names.
// Without arguments all configured crawlers are selected, in name order.
func selectCrawlers(cf *config.File, args []string) ([]string, error) {
	if len(args) == 0 {
		names := make([]string, 0, len(cf.Crawlers))
		for name := range cf.Crawlers {
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) == 0 {
			return nil, errors.New("no crawlers configured")
		}
		return names, nil
	}

	for _, name := range args {
		if _, ok := cf.Crawlers[name]; !ok {
			return nil, fmt.Errorf("unknown crawler: %s", name)
		}
	}
	return args, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
