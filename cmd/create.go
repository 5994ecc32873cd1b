package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snapshotmanager/boom-go/internal/bmerr"
	"github.com/snapshotmanager/boom-go/internal/compose"
	"github.com/snapshotmanager/boom-go/internal/entry"
)

var (
	createOsID      string
	createMachineID string
	createVersion   string
	createRootDev   string
	createLvmRootLV string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Compose and write a new boot entry from an OS profile and host overlay",
	RunE:  runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createOsID, "os-id", "", "os_id of the profile to compose against (required)")
	createCmd.Flags().StringVar(&createMachineID, "machine-id", "", "machine-id for the new entry (required)")
	createCmd.Flags().StringVar(&createVersion, "entry-version", "", "kernel version for the new entry (required)")
	createCmd.Flags().StringVar(&createRootDev, "root-device", "", "root device for the new entry (required)")
	createCmd.Flags().StringVar(&createLvmRootLV, "lvm-root-lv", "", "LVM logical volume backing the root device, if any")
	createCmd.MarkFlagRequired("os-id")
	createCmd.MarkFlagRequired("machine-id")
	createCmd.MarkFlagRequired("entry-version")
	createCmd.MarkFlagRequired("root-device")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	osProfile, ok := a.Profile.FindOsProfile(createOsID)
	if !ok {
		return bmerr.Newf(bmerr.KindProfile, "no os profile with os_id %q", createOsID)
	}

	params, err := compose.NewBootParams(createVersion, createRootDev, createLvmRootLV)
	if err != nil {
		return err
	}

	hostProfile, hasHost := a.Profile.HostProfileForMachine(createMachineID)
	src := a.Profile.Resolve(createVersion, osProfile.OsID(), "")
	if hasHost {
		src.Host = &hostProfile
		params.AppendAddOpts(hostProfile.AddOpts)
		params.AppendDelOpts(hostProfile.DelOpts)
	}

	engine := compose.NewEngine(nil)
	rendered := engine.Render(src, params)

	e, err := entry.New(rendered.Title, createMachineID, createVersion, params)
	if err != nil {
		return err
	}
	e.Linux = rendered.Linux
	e.Initrd = rendered.Initramfs
	e.Options = rendered.Options
	e.OsID = osProfile.OsID()

	if err := a.Entry.Create(e); err != nil {
		return err
	}

	fmt.Printf("created %s %s\n", e.BootID(), e.Title)
	return nil
}
