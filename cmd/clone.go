package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/snapshotmanager/boom-go/internal/bmerr"
	"github.com/snapshotmanager/boom-go/internal/entry"
)

var (
	cloneTitle   string
	cloneOptions string
	cloneLinux   string
	cloneInitrd  string
	cloneEFI     string
	cloneVersion string
)

var cloneCmd = &cobra.Command{
	Use:   "clone <boot-id-prefix>",
	Short: "Clone an existing boot entry with field overrides",
	Args:  cobra.ExactArgs(1),
	RunE:  runClone,
}

func init() {
	cloneCmd.Flags().StringVar(&cloneTitle, "title", "", "override the cloned entry's title")
	cloneCmd.Flags().StringVar(&cloneOptions, "options", "", "override the cloned entry's options")
	cloneCmd.Flags().StringVar(&cloneLinux, "linux", "", "override the cloned entry's linux path")
	cloneCmd.Flags().StringVar(&cloneInitrd, "initrd", "", "override the cloned entry's initrd path")
	cloneCmd.Flags().StringVar(&cloneEFI, "efi", "", "override the cloned entry's efi path")
	cloneCmd.Flags().StringVar(&cloneVersion, "entry-version", "", "override the cloned entry's version")
	rootCmd.AddCommand(cloneCmd)
}

func findByBootIDPrefix(s *entry.Store, prefix string) (*entry.BootEntry, error) {
	var matches []*entry.BootEntry
	for _, e := range s.Entries() {
		if strings.HasPrefix(e.BootID(), prefix) {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return nil, bmerr.Newf(bmerr.KindEntry, "no entry matches boot_id prefix %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return nil, bmerr.Newf(bmerr.KindEntry, "boot_id prefix %q is ambiguous (%d matches)", prefix, len(matches))
	}
}

func runClone(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	src, err := findByBootIDPrefix(a.Entry, args[0])
	if err != nil {
		return err
	}

	clone, err := a.Entry.Clone(src, entry.Delta{
		Title:   cloneTitle,
		Options: cloneOptions,
		Linux:   cloneLinux,
		Initrd:  cloneInitrd,
		EFI:     cloneEFI,
		Version: cloneVersion,
	})
	if err != nil {
		return err
	}

	fmt.Printf("cloned %s -> %s\n", src.BootID(), clone.BootID())
	return nil
}
