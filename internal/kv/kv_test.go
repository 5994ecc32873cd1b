package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank("   "))
	assert.True(t, IsBlank("# a comment"))
	assert.True(t, IsBlank("   # indented comment"))
	assert.False(t, IsBlank("title Fedora"))
}

func TestParseLineEquals(t *testing.T) {
	p, err := ParseLine(`title=Fedora Linux`, false)
	require.NoError(t, err)
	assert.Equal(t, "title", p.Name)
	assert.Equal(t, "Fedora Linux", p.Value)
	assert.True(t, p.HasValue)
}

func TestParseLineWhitespaceSeparator(t *testing.T) {
	p, err := ParseLine(`linux /vmlinuz-6.1.0`, false)
	require.NoError(t, err)
	assert.Equal(t, "linux", p.Name)
	assert.Equal(t, "/vmlinuz-6.1.0", p.Value)
}

func TestParseLineQuoted(t *testing.T) {
	p, err := ParseLine(`BOOM_OS_NAME="Fedora Linux"`, false)
	require.NoError(t, err)
	assert.Equal(t, "BOOM_OS_NAME", p.Name)
	assert.Equal(t, "Fedora Linux", p.Value)
}

func TestParseLineQuotedSingle(t *testing.T) {
	p, err := ParseLine(`options='root=/dev/sda1 ro'`, false)
	require.NoError(t, err)
	assert.Equal(t, "root=/dev/sda1 ro", p.Value)
}

func TestParseLineInlineComment(t *testing.T) {
	p, err := ParseLine(`version=1.1.1 # kept for reference`, false)
	require.NoError(t, err)
	assert.Equal(t, "1.1.1", p.Value)
}

func TestParseLineCommentInsideQuotesPreserved(t *testing.T) {
	p, err := ParseLine(`options="root=/dev/sda1 ro # not a comment"`, false)
	require.NoError(t, err)
	assert.Equal(t, "root=/dev/sda1 ro # not a comment", p.Value)
}

func TestParseLineAllowEmpty(t *testing.T) {
	p, err := ParseLine(`disabled`, true)
	require.NoError(t, err)
	assert.Equal(t, "disabled", p.Name)
	assert.False(t, p.HasValue)
}

func TestParseLineMissingSeparatorFails(t *testing.T) {
	_, err := ParseLine(`disabled`, false)
	require.Error(t, err)
}

func TestParseLineDoubleSeparatorFails(t *testing.T) {
	_, err := ParseLine(`title==Fedora`, false)
	require.Error(t, err)
}

func TestParseLineDisallowedJoinerFails(t *testing.T) {
	_, err := ParseLine(`title+=Fedora`, false)
	require.Error(t, err)
}

func TestParseLineBadNameCharFails(t *testing.T) {
	_, err := ParseLine(`=no name`, false)
	require.Error(t, err)
}
