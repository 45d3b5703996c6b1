package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/scidd/pkg/errors"
	"github.com/glorpus-work/scidd/pkg/scidd"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <identifier>...",
		Short: "Fetch files into the local cache",
		Long:  "Download the files the given identifiers point to, placing them in the local cache. Identifiers already cached are not downloaded again.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, manager, err := loadConfigAndManager()
			if err != nil {
				return err
			}
			for _, raw := range args {
				id, err := scidd.Parse(raw)
				if err != nil {
					return err
				}
				file, ok := id.(scidd.FileResource)
				if !ok {
					return errors.Wrapf(errors.ErrNotAFileResource, "%s", raw)
				}
				path, err := manager.FilePath(cmd.Context(), file)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	return cmd
}
