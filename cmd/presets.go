package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grovetools/kb/pkg/content"
	"github.com/grovetools/kb/pkg/extractor"
	"github.com/grovetools/kb/pkg/preset"
)

func NewPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List entry presets, extractors and content kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			section(out, "Presets (entry type)")
			for _, p := range preset.Default(nil).Presets() {
				row(out, p.Name, p.Description)
			}

			reg := extractor.Default()
			section(out, "Extractors")
			for _, name := range reg.Names() {
				row(out, name, reg.Describe(name))
			}

			section(out, "Content kinds")
			row(out, strings.Join(content.Kinds(), ", "), "")
			return nil
		},
	}
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", styled(w, headerStyle, title))
}

func row(w io.Writer, name, description string) {
	if description == "" {
		fmt.Fprintf(w, "  %s\n", name)
		return
	}
	fmt.Fprintf(w, "  %-28s %s\n", name, styled(w, mutedStyle, description))
}
