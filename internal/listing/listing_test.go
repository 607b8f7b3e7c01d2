package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nimbusvault/corestore/pkg/types"
)

func TestSortBySizeDescending(t *testing.T) {
	files := []types.File{
		{ID: "a", Size: 10},
		{ID: "b", Size: 30},
		{ID: "c", Size: 20},
	}
	sortBySize(files, types.OrderDesc)
	assert.Equal(t, []string{"b", "c", "a"}, idsOf(files))
}

func TestSortBySizeAscendingStable(t *testing.T) {
	files := []types.File{
		{ID: "a", Size: 10},
		{ID: "b", Size: 10},
		{ID: "c", Size: 5},
	}
	sortBySize(files, types.OrderAsc)
	assert.Equal(t, []string{"c", "a", "b"}, idsOf(files))
}

func idsOf(files []types.File) []string {
	ids := make([]string, len(files))
	for i, f := range files {
		ids[i] = f.ID
	}
	return ids
}
