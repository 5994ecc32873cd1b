package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestValidateForType(t *testing.T) {
	s := &Selector{BootID: strp("abc1234")}
	require.NoError(t, s.ValidateForType(GroupEntry))

	s2 := &Selector{OsID: strp("abc1234")}
	err := s2.ValidateForType(GroupEntry)
	require.Error(t, err)
}

func TestMatchEntryPrefix(t *testing.T) {
	s := &Selector{BootID: strp("f0a46b7")}
	assert.True(t, s.MatchEntry(EntryFields{BootID: "f0a46b7a6e982cab"}))
	assert.False(t, s.MatchEntry(EntryFields{BootID: "deadbeef"}))
}

func TestMatchEntryExact(t *testing.T) {
	s := &Selector{Version: strp("6.1.0")}
	assert.True(t, s.MatchEntry(EntryFields{Version: "6.1.0"}))
	assert.False(t, s.MatchEntry(EntryFields{Version: "6.2.0"}))
}

func TestMatchEntryPathMatchesLinuxOrInitrd(t *testing.T) {
	s := &Selector{Path: strp("/vmlinuz-linux")}
	assert.True(t, s.MatchEntry(EntryFields{Linux: "/vmlinuz-linux", Initrd: "/initramfs-linux.img"}))
	assert.True(t, s.MatchEntry(EntryFields{Linux: "/vmlinuz-other", Initrd: "/vmlinuz-linux"}))
	assert.False(t, s.MatchEntry(EntryFields{Linux: "/vmlinuz-other", Initrd: "/initramfs-other.img"}))
}

func TestMatchCache(t *testing.T) {
	s := &Selector{Path: strp("/vmlinuz-linux")}
	assert.True(t, s.MatchCache(CacheFields{Path: "/vmlinuz-linux"}))
	assert.False(t, s.MatchCache(CacheFields{Path: "/vmlinuz-other"}))
}

func TestMatchUnsetSelectorMatchesEverything(t *testing.T) {
	s := &Selector{}
	assert.True(t, s.MatchEntry(EntryFields{Title: "anything"}))
	assert.True(t, s.MatchProfile(ProfileFields{OsName: "anything"}))
}

func TestMinUniqueWidth(t *testing.T) {
	ids := []string{
		"f0a46b7a6e982cab",
		"f0a46b7999999999",
		"deadbeefcafebabe",
	}
	w := MinUniqueWidth(ids)
	assert.GreaterOrEqual(t, w, 7)

	seen := map[string]bool{}
	for _, id := range ids {
		key := id
		if len(key) > w {
			key = key[:w]
		}
		assert.False(t, seen[key], "prefix %q should be unique at width %d", key, w)
		seen[key] = true
	}
}

func TestMinUniqueWidthNeverBelowSeven(t *testing.T) {
	assert.Equal(t, 7, MinUniqueWidth([]string{"aaaaaaaaaa", "bbbbbbbbbb"}))
}
