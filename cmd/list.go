package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/snapshotmanager/boom-go/internal/selector"
)

var (
	listBootID    string
	listTitle     string
	listMachineID string
	listVersion   string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List boot entries",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listBootID, "boot-id", "", "filter by boot_id prefix")
	listCmd.Flags().StringVar(&listTitle, "title", "", "filter by exact title")
	listCmd.Flags().StringVar(&listMachineID, "machine-id", "", "filter by exact machine-id")
	listCmd.Flags().StringVar(&listVersion, "version", "", "filter by exact version")
	rootCmd.AddCommand(listCmd)
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// titleWidth picks how many columns the title field gets: on a real
// terminal it leaves room for the boot_id prefix, version, and read-only
// marker; off a terminal (piped output) it is left unbounded.
func titleWidth() int {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return -1
	}
	cols, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || cols <= 0 {
		return 40
	}
	w := cols - 40
	if w < 10 {
		w = 10
	}
	return w
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	sel := &selector.Selector{
		BootID:    optionalString(listBootID),
		Title:     optionalString(listTitle),
		MachineID: optionalString(listMachineID),
		Version:   optionalString(listVersion),
	}
	if err := sel.ValidateForType(selector.GroupEntry); err != nil {
		return err
	}

	width := a.Entry.MinUniqueWidth()
	tWidth := titleWidth()
	for _, e := range a.Entry.Entries() {
		if !sel.MatchEntry(selector.EntryFields{
			BootID:       e.BootID(),
			Title:        e.Title,
			MachineID:    e.MachineID,
			Version:      e.Version,
			Linux:        e.Linux,
			Initrd:       e.Initrd,
			Architecture: e.Architecture,
		}) {
			continue
		}
		prefix := e.BootID()
		if len(prefix) > width {
			prefix = prefix[:width]
		}
		title := e.Title
		if tWidth > 0 && len(title) > tWidth {
			title = title[:tWidth-1] + "…"
		}
		readOnly := ""
		if e.ReadOnly {
			readOnly = " (read-only)"
		}
		fmt.Printf("%s %-40s %s%s\n", prefix, title, e.Version, readOnly)
	}
	return nil
}
