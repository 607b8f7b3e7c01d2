// Package share implements share-link minting, revocation and
// resolution (§4.C8).
package share

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/nimbusvault/corestore/internal/dbstore"
	"github.com/nimbusvault/corestore/pkg/errors"
	"github.com/nimbusvault/corestore/pkg/types"
)

// tokenBytes is the amount of entropy behind a share token before
// base64 encoding: 256 bits.
const tokenBytes = 32

// Service implements types.ShareMinter.
type Service struct {
	db *dbstore.Store
}

var _ types.ShareMinter = (*Service)(nil)

// New constructs a share-link service.
func New(db *dbstore.Store) *Service {
	return &Service{db: db}
}

func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(errors.KindInternal, err, "failed to generate share token").
			WithComponent("share")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MintOrReuse binds fileIDs to a share link owned by userID. If userID
// already owns a link whose bound file set is exactly fileIDs, that link
// is returned; otherwise a new link is minted, every id is bound to it
// and marked shared. A link holding only some of the ids is not reused.
func (s *Service) MintOrReuse(ctx context.Context, userID string, fileIDs []string) (*types.ShareLink, error) {
	if len(fileIDs) == 0 {
		return nil, errors.New(errors.KindInvalidPath, "no files selected for sharing").
			WithComponent("share")
	}

	existing, err := s.db.FindShareLinkForFile(ctx, userID, fileIDs)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.db.AddShareLinkFiles(ctx, existing.ID, fileIDs); err != nil {
			return nil, err
		}
		return existing, nil
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	link, err := s.db.CreateShareLink(ctx, userID, token, nil)
	if err != nil {
		return nil, err
	}
	if err := s.db.AddShareLinkFiles(ctx, link.ID, fileIDs); err != nil {
		return nil, err
	}

	for _, fileID := range fileIDs {
		if err := s.db.SetShared(ctx, userID, []string{fileID}, true); err != nil {
			return nil, err
		}
	}

	return link, nil
}

// Revoke deletes userID's share link whose bound file set is exactly
// fileIDs, together with its file associations. When no link has exactly
// that set nothing changes, so revoking a subset of a link's files
// leaves the link as it is.
func (s *Service) Revoke(ctx context.Context, userID string, fileIDs []string) error {
	link, err := s.db.FindShareLinkForFile(ctx, userID, fileIDs)
	if err != nil {
		return err
	}
	if link == nil {
		return nil
	}

	if err := s.db.RemoveShareLinkFiles(ctx, link.ID); err != nil {
		return err
	}

	count, err := s.db.CountShareLinkFiles(ctx, link.ID)
	if err != nil {
		return err
	}
	if count == 0 {
		return s.db.DeleteShareLink(ctx, userID, link.ID)
	}
	return nil
}

// Resolve validates token and returns its bound files. An unknown or
// expired token both fail with NotFound — never a distinct Expired
// kind — so a prober cannot distinguish "wrong" from "gone".
func (s *Service) Resolve(ctx context.Context, token string) ([]types.File, error) {
	if token == "" {
		return nil, errors.New(errors.KindNotFound, "share link not found").WithComponent("share")
	}

	link, err := s.db.GetShareLinkByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, errors.New(errors.KindNotFound, "share link not found").WithComponent("share")
	}

	if link.Expired(time.Now().UTC()) {
		return nil, errors.New(errors.KindNotFound, "share link not found").WithComponent("share")
	}

	return s.db.FilesForShareLink(ctx, link.ID)
}
