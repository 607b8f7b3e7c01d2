package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nimbusvault/corestore/internal/dbstore"
)

func TestDepthOfRoot(t *testing.T) {
	assert.Equal(t, 0, depthOf("root", nil, "root"))
}

func TestDepthOfDescendant(t *testing.T) {
	descendants := []dbstore.DescendantEntry{
		{ID: "child", Depth: 1},
		{ID: "grandchild", Depth: 2},
	}
	assert.Equal(t, 1, depthOf("child", descendants, "root"))
	assert.Equal(t, 2, depthOf("grandchild", descendants, "root"))
	assert.Equal(t, 0, depthOf("unknown", descendants, "root"))
}
