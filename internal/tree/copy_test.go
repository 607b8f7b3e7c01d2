package tree

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusvault/corestore/pkg/types"
)

func TestFixupModifiedSkipsWithinTolerance(t *testing.T) {
	e := &Engine{} // db is never touched on the within-tolerance path
	now := time.Now().UTC()
	f := &types.File{Modified: now.Add(500 * time.Millisecond)}

	err := e.fixupModified(nil, f, now)
	require.NoError(t, err)
	assert.NotEqual(t, now, f.Modified, "modified should be untouched when already within tolerance")
}
