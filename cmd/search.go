package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grovetools/kb/pkg/search"
)

func NewSearchCmd(app *App) *cobra.Command {
	var (
		searchPage  string
		searchKind  string
		searchLimit int
	)

	cmd := &cobra.Command{
		Use:   "search <project> <query>",
		Short: "Search a compiled knowledge base",
		Long: `Search the index written by --output-mode index.

Examples:
  kb search docs "rate limit"
  kb search docs goroutine --page api
  kb search docs config -k markdown -n 5`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := app.Options(cmd)
			if err != nil {
				return err
			}
			project := args[0]
			query := strings.Join(args[1:], " ")

			path := opts.IndexPath(project)
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("no search index for %s at %s; compile it with --output-mode index", project, path)
			}
			idx, err := search.NewIndex(path)
			if err != nil {
				return err
			}
			defer idx.Close()

			hits, err := idx.Search(query, &search.Options{Page: searchPage, Kind: searchKind, Limit: searchLimit})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(hits) == 0 {
				fmt.Fprintln(out, "No results found")
				return nil
			}
			fmt.Fprintf(out, "Found %d results:\n\n", len(hits))
			for i, h := range hits {
				title := h.Title
				if title == "" {
					title = h.EntryID
				}
				fmt.Fprintf(out, "%d. %s %s\n", i+1, styled(out, headerStyle, title), styled(out, mutedStyle, "("+h.Kind+")"))
				fmt.Fprintf(out, "   %s\n", h.Key)
				if snippet := highlight(out, h.Snippet); snippet != "" {
					fmt.Fprintf(out, "   %s\n", snippet)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&searchPage, "page", "", "Only search one page")
	cmd.Flags().StringVarP(&searchKind, "kind", "k", "", "Only search one content kind (markdown, html, code, generic)")
	cmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "Maximum number of results")

	return cmd
}

// highlight flattens a snippet to one line and styles its match markers.
func highlight(w io.Writer, snippet string) string {
	snippet = strings.Join(strings.Fields(snippet), " ")
	var sb strings.Builder
	for {
		start := strings.Index(snippet, "<match>")
		if start < 0 {
			break
		}
		end := strings.Index(snippet[start:], "</match>")
		if end < 0 {
			break
		}
		end += start
		sb.WriteString(snippet[:start])
		sb.WriteString(styled(w, matchStyle, snippet[start+len("<match>"):end]))
		snippet = snippet[end+len("</match>"):]
	}
	sb.WriteString(snippet)
	return sb.String()
}
