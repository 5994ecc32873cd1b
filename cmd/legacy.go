package cmd

import (
	"github.com/spf13/cobra"

	"github.com/snapshotmanager/boom-go/internal/legacy"
)

var legacyCmd = &cobra.Command{
	Use:   "legacy",
	Short: "Regenerate a fenced block of entries inside a foreign config file",
}

var legacyWriteCmd = &cobra.Command{
	Use:   "write <target-file>",
	Short: "Regenerate the fenced section of target-file with every loaded entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runLegacyWrite,
}

var legacyClearCmd = &cobra.Command{
	Use:   "clear <target-file>",
	Short: "Remove the fenced section from target-file",
	Args:  cobra.ExactArgs(1),
	RunE:  runLegacyClear,
}

func init() {
	legacyCmd.AddCommand(legacyWriteCmd, legacyClearCmd)
	rootCmd.AddCommand(legacyCmd)
}

func runLegacyWrite(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	var entries []legacy.Entry
	for _, e := range a.Entry.Entries() {
		entries = append(entries, legacy.Entry{
			Version: e.Version,
			Title:   e.Title,
			Block:   e.Render(),
		})
	}

	return legacy.Write(a.Runner, args[0], a.Config.Legacy.Format, entries)
}

func runLegacyClear(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	return legacy.Clear(a.Runner, args[0], a.Config.Legacy.Format)
}
