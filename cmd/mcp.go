package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/grovetools/kb/internal/mcpserver"
	"github.com/grovetools/kb/pkg/service"
)

// projectLocator limits the served projects to the ones named on the
// command line, if any.
type projectLocator struct {
	service.Options
	only []string
}

func (l projectLocator) Projects() ([]string, error) {
	if len(l.only) > 0 {
		return l.only, nil
	}
	return l.Options.Projects()
}

func NewMCPCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp [project]...",
		Short: "Serve knowledge-base search to MCP clients over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout with the tools
list_projects and search_knowledge. Projects must be compiled with
--output-mode index first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := app.Options(cmd)
			if err != nil {
				return err
			}
			// stdout carries the protocol.
			app.Logger.SetOutput(cmd.ErrOrStderr())
			srv := mcpserver.New(projectLocator{Options: opts, only: args}, Version, logrus.NewEntry(app.Logger))
			return srv.ServeStdio()
		},
	}
}
