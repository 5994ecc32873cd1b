package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <boot-id-prefix>",
	Short: "Delete a boot entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	e, err := findByBootIDPrefix(a.Entry, args[0])
	if err != nil {
		return err
	}
	if err := a.Entry.Delete(e); err != nil {
		return err
	}

	fmt.Printf("deleted %s\n", e.BootID())
	return nil
}
