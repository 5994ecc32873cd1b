package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the content-addressed boot-image cache",
}

var cacheInsertCmd = &cobra.Command{
	Use:   "insert <boot-relative-path>",
	Short: "Insert a boot-relative file's current content into the cache",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheInsert,
}

var cacheBackupCmd = &cobra.Command{
	Use:   "backup <boot-relative-path>",
	Short: "Cache a path and restore it under a new .boomN sidecar name",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheBackup,
}

var cacheRestoreCmd = &cobra.Command{
	Use:   "restore <boot-relative-path>",
	Short: "Restore the newest cached image for a path back to /boot",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheRestore,
}

var (
	cacheUncacheForce bool
)

var cacheUncacheCmd = &cobra.Command{
	Use:   "uncache <boot-relative-path>",
	Short: "Drop a path from the cache",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheUncache,
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Uncache every path not referenced by a live entry",
	RunE:  runCacheClean,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every cached path",
	RunE:  runCacheList,
}

func init() {
	cacheUncacheCmd.Flags().BoolVar(&cacheUncacheForce, "force", false, "uncache even if a live entry still references the path")

	cacheCmd.AddCommand(cacheInsertCmd, cacheBackupCmd, cacheRestoreCmd, cacheUncacheCmd, cacheCleanCmd, cacheListCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheInsert(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	imgID, err := a.Cache.CachePath(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s -> %s\n", args[0], imgID)
	return nil
}

func runCacheBackup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	backupPath, err := a.Cache.CacheBackup(args[0])
	if err != nil {
		return err
	}
	fmt.Println(backupPath)
	return nil
}

func runCacheRestore(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	return a.Cache.Restore(args[0])
}

func runCacheUncache(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	return a.Cache.Uncache(args[0], cacheUncacheForce)
}

func runCacheClean(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	return a.Cache.Clean()
}

func runCacheList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	records, err := a.Cache.FindPaths(nil)
	if err != nil {
		return err
	}
	for _, r := range records {
		state := a.Cache.State(r.Path, r.Images[0])
		fmt.Printf("%-50s %-10s %s\n", r.Path, state, r.Images[0])
	}
	return nil
}
