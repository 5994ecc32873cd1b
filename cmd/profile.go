package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/snapshotmanager/boom-go/internal/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect OS and host profiles",
}

var profileExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump every loaded OS and host profile as YAML",
	RunE:  runProfileExport,
}

func init() {
	profileCmd.AddCommand(profileExportCmd)
	rootCmd.AddCommand(profileCmd)
}

// profileDump is the YAML-serializable view of the profile store, used for
// backup and for feeding profile definitions into other tooling.
type profileDump struct {
	OsProfiles   []profile.OsProfile   `yaml:"os_profiles"`
	HostProfiles []profile.HostProfile `yaml:"host_profiles"`
}

func runProfileExport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	dump := profileDump{
		OsProfiles:   a.Profile.OsProfiles(),
		HostProfiles: a.Profile.HostProfiles(),
	}

	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	if err := enc.Encode(dump); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "exported %d os profile(s), %d host profile(s)\n", len(dump.OsProfiles), len(dump.HostProfiles))
	return nil
}
