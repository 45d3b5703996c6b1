package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/scidd/pkg/scidd"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	var (
		domain string
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "search <filename>",
		Short: "Find identifiers for a filename",
		Long:  "Search a domain for the identifiers matching a bare filename. Without --all, the filename must match exactly one file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := loadConfigAndManager(); err != nil {
				return err
			}
			ids, err := scidd.FromFilename(cmd.Context(), args[0], domain, all)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id.String())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "astro", "Domain to search in")
	cmd.Flags().BoolVar(&all, "all", false, "Return every match instead of requiring a unique one")

	return cmd
}
