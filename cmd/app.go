// Package cmd holds the kb subcommands.
package cmd

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/grovetools/kb/cmd/config"
	"github.com/grovetools/kb/pkg/service"
)

// App is shared by the subcommands. main fills Logger before any of them
// run.
type App struct {
	Logger *logrus.Logger
	Viper  *viper.Viper
}

// NewApp creates an App with a quiet logger on stderr.
func NewApp() *App {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	return &App{Logger: logger, Viper: viper.New()}
}

// Options loads the options for cmd.
func (a *App) Options(cmd *cobra.Command) (service.Options, error) {
	opts, err := config.Load(a.Viper, cmd.Flags())
	if err != nil {
		return opts, err
	}
	if opts.Debug {
		a.Logger.SetLevel(logrus.DebugLevel)
	}
	return opts, nil
}

// Service builds a compile service from the options of cmd.
func (a *App) Service(cmd *cobra.Command) (*service.Service, error) {
	opts, err := a.Options(cmd)
	if err != nil {
		return nil, err
	}
	return service.New(opts, service.WithLogger(logrus.NewEntry(a.Logger)))
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	matchStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// styled renders text with s only when w is a terminal.
func styled(w io.Writer, s lipgloss.Style, text string) string {
	f, ok := w.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return text
	}
	return s.Render(text)
}

// NewRootCmd assembles the kb command tree.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:          "kb",
		Short:        "Compile knowledge bases from declarative source entries",
		SilenceUsage: true,
	}
	config.AddGlobalFlags(root)

	root.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if verbose, _ := c.Flags().GetBool("verbose"); verbose {
			app.Logger.SetLevel(logrus.InfoLevel)
		}
		if debug, _ := c.Flags().GetBool("debug"); debug {
			app.Logger.SetLevel(logrus.DebugLevel)
		}
		return nil
	}

	root.AddCommand(NewCompileCmd(app))
	root.AddCommand(NewSearchCmd(app))
	root.AddCommand(NewPresetsCmd())
	root.AddCommand(NewMCPCmd(app))
	root.AddCommand(NewVersionCmd())
	return root
}
