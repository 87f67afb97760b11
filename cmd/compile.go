package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/grovetools/kb/cmd/config"
	"github.com/grovetools/kb/internal/watch"
	"github.com/grovetools/kb/pkg/service"
)

func NewCompileCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <project>...",
		Short: "Compile project knowledge bases",
		Long: `Resolve every entry of each project, extract or reuse cached content and
assemble the output files.

Examples:
  kb compile docs --projects-folder ~/kb
  kb compile docs api --output-mode pages
  kb compile docs --watch`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.Service(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			results, runErr := svc.RunProjects(ctx, args)
			for _, r := range results {
				printResult(out, r)
			}
			if !svc.Options().Watch {
				return runErr
			}
			return watchProjects(ctx, svc, args, out)
		},
	}
	config.AddCompileFlags(cmd.Flags())
	return cmd
}

func watchProjects(ctx context.Context, svc *service.Service, projects []string, out io.Writer) error {
	files := map[string]string{}
	for _, p := range projects {
		file, err := svc.EntriesFile(p)
		if err != nil {
			return err
		}
		files[p] = file
	}
	w, err := watch.New(files, func(ctx context.Context, project string) {
		res, err := svc.RunProject(ctx, project)
		if err != nil {
			svc.Logger().WithError(err).WithField("project", project).Error("Project failed")
			fmt.Fprintln(out, styled(out, errStyle, fmt.Sprintf("✗ %s: %v", project, err)))
			return
		}
		printResult(out, res)
	}, watch.Options{Logger: svc.Logger()})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, styled(out, mutedStyle, fmt.Sprintf("Watching %s, press Ctrl+C to stop", strings.Join(projects, ", "))))
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printResult(w io.Writer, r *service.ProjectResult) {
	fmt.Fprintf(w, "%s %s  %d modules (%d extracted, %d cached, %d skipped)\n",
		styled(w, okStyle, "✓"), styled(w, headerStyle, r.Project),
		r.Modules, r.Extracted, r.CacheHits, r.Skipped)
	for _, o := range r.Outputs {
		fmt.Fprintf(w, "  %s\n", styled(w, mutedStyle, filepath.Join(r.OutFolder, o)))
	}
}
