package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/scidd/internal/logger"
	"github.com/glorpus-work/scidd/pkg/cache"
)

// NewCacheCmd creates the cache command with subcommands.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local data cache",
		Long:  "Clean, show information about, and manage the local data cache",
	}

	cmd.AddCommand(
		newCacheCleanCmd(),
		newCacheInfoCmd(),
		newCacheDirCmd(),
	)

	return cmd
}

func newCacheCleanCmd() *cobra.Command {
	var (
		all       bool
		files     bool
		responses bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the data cache",
		Long:  "Remove cached files to free up disk space",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCacheClean(all, files, responses)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Clean all cached content")
	cmd.Flags().BoolVar(&files, "files", false, "Clean only downloaded files")
	cmd.Flags().BoolVar(&responses, "responses", false, "Clean only cached API responses")

	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache information",
		Long:  "Display information about the local data cache",
		RunE:  runCacheInfo,
	}
}

func newCacheDirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dir",
		Short: "Show cache directory path",
		Long:  "Display the path to the cache directory",
		RunE:  runCacheDir,
	}
}

func runCacheClean(all, files, responses bool) error {
	_, manager, err := loadConfigAndManager()
	if err != nil {
		return err
	}

	if !all && !files && !responses {
		all = true
	}

	result, err := manager.Clean(cache.CleanOptions{All: all, Files: files, Responses: responses})
	if err != nil {
		return err
	}

	if result.FilesFreed > 0 {
		logger.Info("Cleaned downloaded files", logger.Fields{"size": humanize.Bytes(uint64(result.FilesFreed))})
	}
	if result.ResponseFreed > 0 {
		logger.Info("Cleaned cached API responses", logger.Fields{"size": humanize.Bytes(uint64(result.ResponseFreed))})
	}
	logger.Info("Cache cleaning completed", logger.Fields{"total_freed": humanize.Bytes(uint64(result.TotalFreed))})
	return nil
}

func runCacheInfo(cmd *cobra.Command, _ []string) error {
	_, manager, err := loadConfigAndManager()
	if err != nil {
		return err
	}

	info, err := manager.GetInfo()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cache Directory: %s\n", info.Directory)
	fmt.Fprintf(out, "Total Size: %s\n", humanize.Bytes(uint64(info.TotalSize)))
	fmt.Fprintf(out, "Downloaded Files: %d (%s)\n", info.FileCount, humanize.Bytes(uint64(info.FileSize)))
	fmt.Fprintf(out, "API Responses: %s\n", humanize.Bytes(uint64(info.ResponseSize)))
	return nil
}

func runCacheDir(cmd *cobra.Command, _ []string) error {
	_, manager, err := loadConfigAndManager()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), manager.Path())
	return nil
}
