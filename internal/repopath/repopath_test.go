package repopath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsDirectory_AppendsSeparator(t *testing.T) {
	assert.Equal(t, "repo/dir/", AsDirectory("repo/dir"))
}

func TestAsDirectory_Idempotent(t *testing.T) {
	once := AsDirectory("repo/dir")
	assert.Equal(t, once, AsDirectory(once))
}

func TestAsDirectory_CollapsesTrailingSeparators(t *testing.T) {
	assert.Equal(t, "repo/dir/", AsDirectory("repo/dir///"))
}

func TestAsDirectory_EmptyPathIsIdentity(t *testing.T) {
	assert.Equal(t, "", AsDirectory(""))
}

func TestIsDirectory(t *testing.T) {
	assert.True(t, IsDirectory("repo/dir/"))
	assert.False(t, IsDirectory("repo/file.txt"))
	assert.False(t, IsDirectory(""))
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"repo/dir/file.txt", "file.txt"},
		{"repo/dir/", "dir"},
		{"file.txt", "file.txt"},
		{"repo/dir///", "dir"},
		{"", ""},
		{"/", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BaseName(tt.path), "BaseName(%q)", tt.path)
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "repo/dir/a.zip", Join("repo/dir", "a.zip"))
	assert.Equal(t, "repo/dir/a.zip", Join("repo/dir/", "a.zip"))
}

func TestClean_StripsSeparators(t *testing.T) {
	assert.Equal(t, "repo/dir", Clean("/repo/dir/"))
}

func TestClean_NormalizesToNFC(t *testing.T) {
	// "é" as base letter + combining accent (NFD) normalizes to the
	// precomposed form (NFC).
	nfd := "café"
	assert.Equal(t, "café", Clean(nfd))
}
