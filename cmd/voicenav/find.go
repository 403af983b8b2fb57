package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MrWong99/voicenav/internal/app"
	"github.com/MrWong99/voicenav/internal/config"
	"github.com/MrWong99/voicenav/internal/finder"
)

func newFindCmd(opts *options) *cobra.Command {
	var (
		htmlFile string
		fuzzy    float64
	)
	cmd := &cobra.Command{
		Use:     "find <descrição>",
		Short:   "List the page elements matching a spoken description",
		Example: `  voicenav find --html form.html campo de email`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if htmlFile != "" {
				cfg.Browser.Backend = config.BackendHTML
				cfg.Browser.HTMLFile = htmlFile
			}
			if cmd.Flags().Changed("fuzzy") {
				cfg.Finder.FuzzyThreshold = fuzzy
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			backend, err := app.DefaultRegistry().Create(cmd.Context(), cfg.Browser)
			if err != nil {
				return err
			}
			defer backend.Close()

			snap, err := backend.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			f := finder.New(finder.WithFuzzyThreshold(cfg.Finder.FuzzyThreshold))
			results := f.Find(snap, strings.Join(args, " "))
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nenhum elemento encontrado")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "REF\tKIND\tSCORE\tTEXT")
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%s\t%.1f\t%s\n", r.Element.Ref, r.Element.Kind, r.Score, r.Element.Text())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&htmlFile, "html", "", "search a static HTML file instead of the configured browser")
	cmd.Flags().Float64Var(&fuzzy, "fuzzy", 0, "Jaro-Winkler fallback threshold in (0, 1]; 0 disables it")
	return cmd
}
