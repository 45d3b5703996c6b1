package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/scidd/pkg/scidd"
)

// NewResolveCmd creates the resolve command.
func NewResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <identifier>...",
		Short: "Resolve identifiers to URLs",
		Long:  "Resolve one or more scidd identifiers to the URLs their data can be retrieved from",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := loadConfigAndManager(); err != nil {
				return err
			}
			for _, raw := range args {
				id, err := scidd.Parse(raw)
				if err != nil {
					return err
				}
				u, err := scidd.ResolveURL(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		},
	}
	return cmd
}
