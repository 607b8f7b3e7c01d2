// Package crypto provides streaming authenticated encryption for
// local-driver bytes at rest. Custom-drive and S3 paths are stored as-is
// and never pass through this package.
package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/nimbusvault/corestore/pkg/errors"
)

// frameVersion is the leading byte of the ciphertext, allowing the framing
// to evolve without breaking previously-written blobs.
const frameVersion byte = 1

// streamPrefixSize is the length of the random nonce prefix drawn once
// per stream; it fills the high bytes of every frame's nonce, and each
// frame carries its full nonce. One Stream's AEAD key is reused across every
// file the process encrypts, so the prefix — not just the per-chunk
// counter — is what keeps two streams from ever sealing under the same
// nonce.
const streamPrefixSize = 4

// chunkSize is the plaintext size per encrypted frame. Framing in fixed
// chunks bounds memory use for arbitrarily large uploads and lets
// decrypt/re-encrypt pipelines run without buffering a whole file.
const chunkSize = 4 << 20 // 4 MiB

// Stream performs chunked AEAD encryption/decryption with a single
// process-level data key, derived once at startup from configuration.
type Stream struct {
	aead cipher.AEAD
	key  [chacha20poly1305.KeySize]byte
}

// NewStream constructs a Stream from a 32-byte data key.
func NewStream(key []byte) (*Stream, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, errors.New(errors.KindInternal, "encryption key must be 32 bytes").
			WithComponent("crypto")
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, err, "failed to initialise AEAD cipher").
			WithComponent("crypto")
	}
	s := &Stream{aead: aead}
	copy(s.key[:], key)
	return s, nil
}

// EncryptStream reads plaintext from src and writes self-describing
// ciphertext frames to dst: a one-byte version tag, followed by one frame
// per chunk of up to chunkSize plaintext bytes, each frame prefixed with
// its 12-byte nonce and 4-byte ciphertext length.
func (s *Stream) EncryptStream(dst io.Writer, src io.Reader) (int64, error) {
	var prefix [streamPrefixSize]byte
	if _, err := rand.Read(prefix[:]); err != nil {
		return 0, errors.Wrap(errors.KindIntegrityError, err, "failed to generate stream nonce prefix").
			WithComponent("crypto")
	}

	if _, err := dst.Write([]byte{frameVersion}); err != nil {
		return 0, errors.Wrap(errors.KindIntegrityError, err, "failed to write encryption header").
			WithComponent("crypto")
	}

	buf := make([]byte, chunkSize)
	var nonceCounter uint64
	var written int64

	for {
		n, readErr := io.ReadFull(src, buf)
		if n > 0 {
			nonce := nonceFor(prefix, nonceCounter)
			nonceCounter++

			sealed := s.aead.Seal(nil, nonce[:], buf[:n], nil)

			var lenPrefix [4]byte
			binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(sealed)))

			if _, err := dst.Write(nonce[:]); err != nil {
				return written, errors.Wrap(errors.KindIntegrityError, err, "failed to write frame nonce").
					WithComponent("crypto")
			}
			if _, err := dst.Write(lenPrefix[:]); err != nil {
				return written, errors.Wrap(errors.KindIntegrityError, err, "failed to write frame length").
					WithComponent("crypto")
			}
			if _, err := dst.Write(sealed); err != nil {
				return written, errors.Wrap(errors.KindIntegrityError, err, "failed to write frame ciphertext").
					WithComponent("crypto")
			}
			written += int64(n)
		}

		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return written, errors.Wrap(errors.KindIntegrityError, readErr, "failed to read plaintext").
				WithComponent("crypto")
		}
	}

	return written, nil
}

// DecryptStream reads ciphertext frames produced by EncryptStream from src
// and writes the recovered plaintext to dst.
func (s *Stream) DecryptStream(dst io.Writer, src io.Reader) (int64, error) {
	var header [1]byte
	if _, err := io.ReadFull(src, header[:]); err != nil {
		return 0, errors.Wrap(errors.KindIntegrityError, err, "failed to read encryption header").
			WithComponent("crypto")
	}
	if header[0] != frameVersion {
		return 0, errors.New(errors.KindIntegrityError, "unsupported ciphertext version").
			WithComponent("crypto")
	}

	var written int64
	for {
		var nonce [chacha20poly1305.NonceSize]byte
		_, err := io.ReadFull(src, nonce[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return written, errors.Wrap(errors.KindIntegrityError, err, "failed to read frame nonce").
				WithComponent("crypto")
		}

		var lenPrefix [4]byte
		if _, err := io.ReadFull(src, lenPrefix[:]); err != nil {
			return written, errors.Wrap(errors.KindIntegrityError, err, "failed to read frame length").
				WithComponent("crypto")
		}
		frameLen := binary.BigEndian.Uint32(lenPrefix[:])

		sealed := make([]byte, frameLen)
		if _, err := io.ReadFull(src, sealed); err != nil {
			return written, errors.Wrap(errors.KindIntegrityError, err, "failed to read frame ciphertext").
				WithComponent("crypto")
		}

		plain, err := s.aead.Open(nil, nonce[:], sealed, nil)
		if err != nil {
			return written, errors.Wrap(errors.KindIntegrityError, err, "ciphertext authentication failed").
				WithComponent("crypto")
		}

		if _, err := dst.Write(plain); err != nil {
			return written, errors.Wrap(errors.KindIntegrityError, err, "failed to write plaintext").
				WithComponent("crypto")
		}
		written += int64(len(plain))
	}

	return written, nil
}

// CopyEncrypted pipelines decrypt→re-encrypt from src to dst without
// materialising plaintext on disk, for copying an already-encrypted
// object under a new key.
func (s *Stream) CopyEncrypted(dst io.Writer, src io.Reader) (int64, error) {
	pr, pw := io.Pipe()

	go func() {
		_, err := s.DecryptStream(pw, src)
		pw.CloseWithError(err)
	}()

	return s.EncryptStream(dst, pr)
}

// nonceFor derives a frame nonce from the stream's random prefix and a
// monotonically increasing per-frame counter: the prefix keeps two
// streams under the same key from ever choosing the same nonce, and
// the counter keeps frames within one stream from repeating.
func nonceFor(prefix [streamPrefixSize]byte, counter uint64) [chacha20poly1305.NonceSize]byte {
	var nonce [chacha20poly1305.NonceSize]byte
	copy(nonce[:streamPrefixSize], prefix[:])
	binary.BigEndian.PutUint64(nonce[streamPrefixSize:], counter)
	return nonce
}
