package customdrive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIgnoredMatchesDirectPattern(t *testing.T) {
	assert.True(t, ignored("/home/user/drive", "/home/user/drive/.DS_Store", []string{".DS_Store"}))
}

func TestIgnoredMatchesDoubleStarPattern(t *testing.T) {
	assert.True(t, ignored(
		"/home/user/drive",
		"/home/user/drive/node_modules/pkg/index.js",
		[]string{"node_modules/**"},
	))
}

func TestIgnoredMatchesBasenameAtAnyDepth(t *testing.T) {
	assert.True(t, ignored(
		"/home/user/drive",
		"/home/user/drive/sub/dir/.DS_Store",
		[]string{".DS_Store"},
	))
}

func TestIgnoredFalseWhenNoPatternMatches(t *testing.T) {
	assert.False(t, ignored("/home/user/drive", "/home/user/drive/report.pdf", []string{"*.tmp"}))
}
