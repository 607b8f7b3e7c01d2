// Package idgen generates the opaque 16-character identifiers used for
// every row in the metadata store (users, files, share links, audit
// events).
package idgen

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/nimbusvault/corestore/pkg/errors"
)

// New returns a random 16-character lowercase hex identifier.
func New() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(errors.KindInternal, err, "failed to generate identifier").
			WithComponent("idgen")
	}
	return hex.EncodeToString(buf), nil
}

// MustNew generates an id and panics on failure, for call sites where
// entropy exhaustion is unrecoverable anyway (startup-time seed data).
func MustNew() string {
	id, err := New()
	if err != nil {
		panic(err)
	}
	return id
}
