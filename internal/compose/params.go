// Package compose implements the template-substitution and reverse-matching
// engine (spec.md component C4) that ties an OS/host profile, a concrete set
// of boot parameters, and the rendered text of a BootEntry together.
package compose

import (
	"github.com/snapshotmanager/boom-go/internal/bmerr"
)

// BootParams is the non-persistent set of runtime parameters plugged into a
// profile to render a BootEntry. A monotonic generation counter lets an
// owning BootEntry detect that its cached boot_id is stale without a dirty
// flag on every setter.
type BootParams struct {
	version         string
	rootDevice      string
	lvmRootLV       string
	btrfsSubvolPath string
	btrfsSubvolID   string
	stratisPoolUUID string
	addOpts         []string
	delOpts         []string
	generation      uint64
}

// NewBootParams validates and constructs a BootParams. version must be
// non-empty. If lvmRootLV is set and rootDevice is empty, rootDevice
// defaults to "/dev/<lvmRootLV>".
func NewBootParams(version, rootDevice, lvmRootLV string) (*BootParams, error) {
	if version == "" {
		return nil, bmerr.New(bmerr.KindEntry, "boot params version must not be empty")
	}
	if rootDevice == "" && lvmRootLV != "" {
		rootDevice = "/dev/" + lvmRootLV
	}
	return &BootParams{
		version:    version,
		rootDevice: rootDevice,
		lvmRootLV:  lvmRootLV,
		generation: 1,
	}, nil
}

func (p *BootParams) Version() string         { return p.version }
func (p *BootParams) RootDevice() string      { return p.rootDevice }
func (p *BootParams) LvmRootLV() string       { return p.lvmRootLV }
func (p *BootParams) BtrfsSubvolPath() string { return p.btrfsSubvolPath }
func (p *BootParams) BtrfsSubvolID() string   { return p.btrfsSubvolID }
func (p *BootParams) StratisPoolUUID() string { return p.stratisPoolUUID }
func (p *BootParams) AddOpts() []string       { return append([]string(nil), p.addOpts...) }
func (p *BootParams) DelOpts() []string       { return append([]string(nil), p.delOpts...) }
func (p *BootParams) Generation() uint64      { return p.generation }

func (p *BootParams) touch() { p.generation++ }

// SetRootDevice updates the root device, dirtying the params.
func (p *BootParams) SetRootDevice(v string) {
	p.rootDevice = v
	p.touch()
}

// SetLvmRootLV sets the LVM logical volume, dirtying the params.
func (p *BootParams) SetLvmRootLV(v string) {
	p.lvmRootLV = v
	p.touch()
}

// SetBtrfsSubvolPath sets the BTRFS subvolume path. Fails if a subvolume id
// is already set, per the "at most one of path/id" invariant.
func (p *BootParams) SetBtrfsSubvolPath(v string) error {
	if v != "" && p.btrfsSubvolID != "" {
		return bmerr.New(bmerr.KindEntry, "cannot set btrfs_subvol_path while btrfs_subvol_id is set")
	}
	p.btrfsSubvolPath = v
	p.touch()
	return nil
}

// SetBtrfsSubvolID sets the BTRFS subvolume id. Fails if a subvolume path is
// already set, per the "at most one of path/id" invariant.
func (p *BootParams) SetBtrfsSubvolID(v string) error {
	if v != "" && p.btrfsSubvolPath != "" {
		return bmerr.New(bmerr.KindEntry, "cannot set btrfs_subvol_id while btrfs_subvol_path is set")
	}
	p.btrfsSubvolID = v
	p.touch()
	return nil
}

// SetStratisPoolUUID sets the Stratis pool UUID, dirtying the params.
func (p *BootParams) SetStratisPoolUUID(v string) {
	p.stratisPoolUUID = v
	p.touch()
}

// SetAddOpts replaces the add_opts list, dirtying the params.
func (p *BootParams) SetAddOpts(opts []string) {
	p.addOpts = append([]string(nil), opts...)
	p.touch()
}

// SetDelOpts replaces the del_opts list, dirtying the params.
func (p *BootParams) SetDelOpts(opts []string) {
	p.delOpts = append([]string(nil), opts...)
	p.touch()
}

// AppendAddOpts merges extra tokens into add_opts (e.g. from a host profile
// overlay), skipping duplicates, and dirties the params if anything changed.
func (p *BootParams) AppendAddOpts(extra []string) {
	if len(extra) == 0 {
		return
	}
	existing := make(map[string]bool, len(p.addOpts))
	for _, o := range p.addOpts {
		existing[o] = true
	}
	changed := false
	for _, o := range extra {
		if !existing[o] {
			p.addOpts = append(p.addOpts, o)
			existing[o] = true
			changed = true
		}
	}
	if changed {
		p.touch()
	}
}

// AppendDelOpts merges extra tokens into del_opts, skipping duplicates, and
// dirties the params if anything changed.
func (p *BootParams) AppendDelOpts(extra []string) {
	if len(extra) == 0 {
		return
	}
	existing := make(map[string]bool, len(p.delOpts))
	for _, o := range p.delOpts {
		existing[o] = true
	}
	changed := false
	for _, o := range extra {
		if !existing[o] {
			p.delOpts = append(p.delOpts, o)
			existing[o] = true
			changed = true
		}
	}
	if changed {
		p.touch()
	}
}

// HasBtrfs reports whether a BTRFS subvolume was configured.
func (p *BootParams) HasBtrfs() bool {
	return p.btrfsSubvolPath != "" || p.btrfsSubvolID != ""
}

// HasLvm reports whether an LVM logical volume was configured.
func (p *BootParams) HasLvm() bool {
	return p.lvmRootLV != ""
}

// HasStratis reports whether a Stratis pool UUID was configured directly.
// Resolving one from root_device via the platform probe happens in the
// rendering engine, not here.
func (p *BootParams) HasStratis() bool {
	return p.stratisPoolUUID != ""
}

// Clone returns an independent copy of p with a fresh generation counter,
// used by entry.Store.Clone to give a cloned entry its own dirty-tracking
// state instead of sharing the source entry's BootParams.
func (p *BootParams) Clone() *BootParams {
	return &BootParams{
		version:         p.version,
		rootDevice:      p.rootDevice,
		lvmRootLV:       p.lvmRootLV,
		btrfsSubvolPath: p.btrfsSubvolPath,
		btrfsSubvolID:   p.btrfsSubvolID,
		stratisPoolUUID: p.stratisPoolUUID,
		addOpts:         append([]string(nil), p.addOpts...),
		delOpts:         append([]string(nil), p.delOpts...),
		generation:      1,
	}
}
