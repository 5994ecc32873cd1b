// Package platform isolates the composition engine from the handful of
// external collaborators spec.md §6 names (LVM, device-mapper, Stratis,
// GRUB2's environment block, blkid): a single Probe interface with a
// shell-out implementation for production use and a canned implementation
// for tests, so the core never imports os/exec directly.
package platform

import (
	"bufio"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// Probe is the boundary between the composition engine and the rest of the
// running system. Every method degrades gracefully per spec.md §6: a
// collaborator that is unavailable yields the documented zero value rather
// than propagating an error into entry composition.
type Probe interface {
	// LVOfPath resolves an absolute device path to its "vg/lv" name, or ""
	// if it is not an LVM logical volume or the lookup failed.
	LVOfPath(devicePath string) string

	// IsLVMPath reports whether devicePath is backed by an LVM
	// device-mapper target. Returns false on any error.
	IsLVMPath(devicePath string) bool

	// StratisPoolUUIDOfPath resolves a /dev/stratis/<pool>/<fs> symlink to
	// its 32-character pool UUID. Returns an error if the path is not a
	// Stratis symlink.
	StratisPoolUUIDOfPath(path string) (string, error)

	// GrubEnv reads a single variable from the GRUB2 environment block.
	// Returns "" on any error (missing grub2-editenv, unset variable, ...).
	GrubEnv(name string) string

	// DetectFstype shells out to blkid to determine a device's filesystem
	// type. Returns an error on a non-zero exit.
	DetectFstype(devicePath string) (string, error)
}

// RealProbe shells out to the standard Linux tools (lvs, dmsetup,
// stratis, grub2-editenv, blkid) via os/exec.
type RealProbe struct{}

var _ Probe = RealProbe{}

func (RealProbe) LVOfPath(devicePath string) string {
	out, err := exec.Command("lvs", "--noheadings", "--separator", "/", "-o", "vg_name,lv_name", devicePath).Output()
	if err != nil {
		log.Debug().Err(err).Str("device", devicePath).Msg("lvs lookup failed, not an LVM path")
		return ""
	}
	return strings.TrimSpace(string(out))
}

func (RealProbe) IsLVMPath(devicePath string) bool {
	out, err := exec.Command("dmsetup", "info", "-c", "--noheadings", "-o", "uuid", devicePath).Output()
	if err != nil {
		log.Debug().Err(err).Str("device", devicePath).Msg("dmsetup lookup failed, not a device-mapper path")
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(string(out)), "LVM-")
}

func (RealProbe) StratisPoolUUIDOfPath(path string) (string, error) {
	if !strings.HasPrefix(path, "/dev/stratis/") {
		return "", fmt.Errorf("not a stratis path: %s", path)
	}
	out, err := exec.Command("stratis", "pool", "list", "--stopped").Output()
	if err != nil {
		return "", fmt.Errorf("stratis pool lookup failed: %w", err)
	}

	pool := strings.TrimPrefix(path, "/dev/stratis/")
	if idx := strings.IndexByte(pool, '/'); idx >= 0 {
		pool = pool[:idx]
	}

	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == pool {
			return fields[1], nil
		}
	}
	return "", fmt.Errorf("stratis pool %q not found", pool)
}

func (RealProbe) GrubEnv(name string) string {
	out, err := exec.Command("grub2-editenv", "-", "list").Output()
	if err != nil {
		out, err = exec.Command("grub-editenv", "-", "list").Output()
		if err != nil {
			log.Debug().Err(err).Str("name", name).Msg("grub environment lookup failed")
			return ""
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		line := scanner.Text()
		if v, ok := strings.CutPrefix(line, name+"="); ok {
			return v
		}
	}
	return ""
}

func (RealProbe) DetectFstype(devicePath string) (string, error) {
	out, err := exec.Command("blkid", "-o", "value", "-s", "TYPE", devicePath).Output()
	if err != nil {
		return "", fmt.Errorf("blkid failed for %s: %w", devicePath, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// CannedProbe returns preconfigured answers, used by tests that exercise
// the composition engine without touching the host's block devices.
type CannedProbe struct {
	LV            map[string]string
	LVMPaths      map[string]bool
	StratisUUID   map[string]string
	Env           map[string]string
	Fstype        map[string]string
	StratisErrors map[string]error
}

var _ Probe = (*CannedProbe)(nil)

func NewCannedProbe() *CannedProbe {
	return &CannedProbe{
		LV:            map[string]string{},
		LVMPaths:      map[string]bool{},
		StratisUUID:   map[string]string{},
		Env:           map[string]string{},
		Fstype:        map[string]string{},
		StratisErrors: map[string]error{},
	}
}

func (p *CannedProbe) LVOfPath(devicePath string) string { return p.LV[devicePath] }

func (p *CannedProbe) IsLVMPath(devicePath string) bool { return p.LVMPaths[devicePath] }

func (p *CannedProbe) StratisPoolUUIDOfPath(path string) (string, error) {
	if err, ok := p.StratisErrors[path]; ok {
		return "", err
	}
	if uuid, ok := p.StratisUUID[path]; ok {
		return uuid, nil
	}
	return "", fmt.Errorf("no canned stratis uuid for %s", path)
}

func (p *CannedProbe) GrubEnv(name string) string { return p.Env[name] }

func (p *CannedProbe) DetectFstype(devicePath string) (string, error) {
	if fstype, ok := p.Fstype[devicePath]; ok {
		return fstype, nil
	}
	return "", fmt.Errorf("no canned fstype for %s", devicePath)
}
