package tree

import (
	"io"
	"os"

	"github.com/nimbusvault/corestore/pkg/errors"
)

// openFile opens a path on the local OS filesystem for reading, outside
// the managed blob store — used only for custom-drive source files.
func openFile(path string) (io.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, err, "failed to open custom-drive file").
			WithComponent("tree")
	}
	return f, nil
}
