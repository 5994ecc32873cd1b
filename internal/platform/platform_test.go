package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCannedProbeDefaults(t *testing.T) {
	p := NewCannedProbe()
	assert.Equal(t, "", p.LVOfPath("/dev/sda1"))
	assert.False(t, p.IsLVMPath("/dev/sda1"))
	assert.Equal(t, "", p.GrubEnv("next_entry"))

	_, err := p.StratisPoolUUIDOfPath("/dev/stratis/pool1/fs1")
	require.Error(t, err)

	_, err = p.DetectFstype("/dev/sda1")
	require.Error(t, err)
}

func TestCannedProbeConfigured(t *testing.T) {
	p := NewCannedProbe()
	p.LV["/dev/vg00/lvol0"] = "vg00/lvol0"
	p.StratisUUID["/dev/stratis/pool1/fs1"] = "e9573e4d41b94f19a1c03f52de5d9a7a"

	assert.Equal(t, "vg00/lvol0", p.LVOfPath("/dev/vg00/lvol0"))

	uuid, err := p.StratisPoolUUIDOfPath("/dev/stratis/pool1/fs1")
	require.NoError(t, err)
	assert.Equal(t, "e9573e4d41b94f19a1c03f52de5d9a7a", uuid)
}
