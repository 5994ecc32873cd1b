package entry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry() *BootEntry {
	return &BootEntry{
		Title:     "Fedora 39 (5.14.0)",
		MachineID: "abc123",
		Version:   "5.14.0",
		Linux:     "/boot/vmlinuz-5.14.0",
		Initrd:    "/boot/initramfs-5.14.0.img",
		Options:   "root=/dev/sda2 ro quiet",
		OsID:      "deadbeef",
	}
}

func TestRenderIncludesOsIdentifierComment(t *testing.T) {
	e := sampleEntry()
	text := e.Render()
	assert.True(t, strings.HasPrefix(text, "#OsIdentifier: deadbeef\n"))
	assert.Contains(t, text, "title Fedora 39 (5.14.0)\n")
	assert.Contains(t, text, "machine-id abc123\n")
	assert.Contains(t, text, "options root=/dev/sda2 ro quiet\n")
}

func TestRenderOmitsOsIdentifierWhenUnbound(t *testing.T) {
	e := sampleEntry()
	e.OsID = ""
	text := e.Render()
	assert.False(t, strings.HasPrefix(text, "#OsIdentifier"))
}

func TestRenderOmitsMachineIDWhenSuppressed(t *testing.T) {
	e := sampleEntry()
	e.SuppressMachineID = true
	text := e.Render()
	assert.NotContains(t, text, "machine-id")
}

func TestParseBLSFileRoundTrip(t *testing.T) {
	e := sampleEntry()
	text := e.Render()
	lines := strings.Split(text, "\n")

	parsed, err := parseBLSFile(lines)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", parsed.osID)
	assert.True(t, parsed.hasKeyMID)

	got := fromParsed(parsed)
	assert.Equal(t, e.Title, got.Title)
	assert.Equal(t, e.MachineID, got.MachineID)
	assert.Equal(t, e.Options, got.Options)
	assert.Equal(t, e.OsID, got.OsID)
}

func TestParseBLSFileMapsIdToGrubID(t *testing.T) {
	lines := []string{"title Test", "id mygrubid"}
	parsed, err := parseBLSFile(lines)
	require.NoError(t, err)
	got := fromParsed(parsed)
	assert.Equal(t, "mygrubid", got.GrubID)
}

func TestParseBLSFileRejectsMalformedLine(t *testing.T) {
	_, err := parseBLSFile([]string{"!!!notakey"})
	require.Error(t, err)
}
