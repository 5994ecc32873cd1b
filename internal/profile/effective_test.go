package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveFallsBackToOsProfile(t *testing.T) {
	os := rhelProfile()
	e := Effective{Os: os}
	assert.Equal(t, os.Options, e.Options())
	assert.Equal(t, os.Title, e.Title())
	assert.Nil(t, e.AddOpts())
}

func TestEffectiveHostOverridesWin(t *testing.T) {
	os := rhelProfile()
	overriddenTitle := "Custom Host Title"
	host := HostProfile{
		MachineID: "abc123",
		Title:     &overriddenTitle,
		AddOpts:   []string{"debug"},
		DelOpts:   []string{"rhgb"},
	}
	e := Effective{Os: os, Host: &host}

	assert.Equal(t, overriddenTitle, e.Title())
	assert.Equal(t, os.Options, e.Options(), "unoverridden fields still defer to the OsProfile")
	assert.Equal(t, []string{"debug"}, e.AddOpts())
	assert.Equal(t, []string{"rhgb"}, e.DelOpts())
}

func TestEffectiveOsIDIgnoresHostWrap(t *testing.T) {
	os := rhelProfile()
	host := HostProfile{MachineID: "abc123"}
	e := Effective{Os: os, Host: &host}
	assert.Equal(t, os.OsID(), e.OsID())
}
