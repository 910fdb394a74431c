// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ionphp/ionload/internal/config"
	"github.com/ionphp/ionload/internal/issue"
	"github.com/ionphp/ionload/pkg/autoload"
)

// annotationSkipConfig marks commands that must work without a loadable
// configuration.
const annotationSkipConfig = "ionload/skip-config"

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type (
	// App wires CLI services and shared dependencies. All command handlers
	// receive an App reference.
	App struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
		// Clock stamps cache file comments. Nil uses the wall clock.
		Clock autoload.Clock

		verbose    bool
		configPath string
		cfg        *config.Config
		logger     *log.Logger
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
		Clock  autoload.Clock
	}
)

// NewApp creates an App from deps.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config: deps.Config,
		Stdout: deps.Stdout,
		Stderr: deps.Stderr,
		Clock:  deps.Clock,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.Stdout == nil {
		app.Stdout = os.Stdout
	}
	if app.Stderr == nil {
		app.Stderr = os.Stderr
	}
	app.cfg = config.DefaultConfig()
	app.logger = log.NewWithOptions(app.Stderr, log.Options{Prefix: config.AppName, Level: app.cfg.Level()})
	return app
}

// Run executes the CLI with the process arguments and returns the exit code.
// This is called by main.main().
func Run() int {
	return NewApp(Dependencies{}).Execute(context.Background(), os.Args[1:])
}

// Execute runs the command tree with args and returns the exit code.
func (a *App) Execute(ctx context.Context, args []string) int {
	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetOut(a.Stdout)
	root.SetErr(a.Stderr)

	// fang.Execute adds styled help and error output
	err := fang.Execute(
		ctx,
		root,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	if err == nil {
		return 0
	}

	// fang prints the message only; suggestions and the chain follow it.
	var ae *issue.ActionableError
	if errors.As(err, &ae) && (a.verbose || len(ae.Suggestions) > 0) {
		fmt.Fprintln(a.Stderr, formatErrorForDisplay(err, a.verbose))
	}
	if id := classifyError(err); id != 0 {
		a.renderIssue(id)
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   config.AppName,
		Short: "Inspect and exercise package autoloaders",
		Long: TitleStyle.Render("ionload") + SubtitleStyle.Render(" - Inspect and exercise package autoloaders") + `

ionload builds a package the way the autoloader does at runtime: it reads
autoloader.json, version.json and composer.json from the package root,
decides debug and cache modes, and creates one PSR-0 or PSR-4 loader per
search path. Class names are resolved through the resulting loader chain.

` + SubtitleStyle.Render("Examples:") + `
  ionload resolve . 'Acme\Widgets\Button'   Resolve a class from ./src
  ionload info . --format json              Describe the package
  ionload cache flush . 'Acme\Widgets\Button'
  ionload cache clear .                     Delete generated cache files
  ionload version compare 1.0.0-rc.1 1.0.0  Compare two versions`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[annotationSkipConfig] != "" {
				return nil
			}
			return app.loadConfig(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/ionload/config.cue)")

	rootCmd.AddCommand(newResolveCommand(app))
	rootCmd.AddCommand(newInfoCommand(app))
	rootCmd.AddCommand(newCacheCommand(app))
	rootCmd.AddCommand(newVersionCommand(app))
	rootCmd.AddCommand(newSettingsCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// loadConfig reads the configuration and applies the log level.
func (a *App) loadConfig(ctx context.Context) error {
	cfg, err := a.Config.Load(ctx, a.loadOptions())
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Level()
	if a.verbose {
		level = log.DebugLevel
	}
	a.logger.SetLevel(level)
	a.logger.Debug("configuration loaded", "source", cfg.Source, "runtime", cfg.Runtime)
	return nil
}

func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: a.configPath}
}

// renderIssue writes the catalog guidance for id to stderr.
func (a *App) renderIssue(id issue.Id) {
	iss := issue.Get(id)
	if iss == nil {
		return
	}
	rendered, err := iss.Render("auto")
	if err != nil {
		a.logger.Debug("failed to render issue", "issue", id, "error", err)
		return
	}
	fmt.Fprint(a.Stderr, rendered)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
