package crypto

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}
	return key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	s, err := NewStream(testKey(t))
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}

	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	var ciphertext bytes.Buffer
	if _, err := s.EncryptStream(&ciphertext, bytes.NewReader(plaintext)); err != nil {
		t.Fatalf("EncryptStream failed: %v", err)
	}

	var recovered bytes.Buffer
	if _, err := s.DecryptStream(&recovered, &ciphertext); err != nil {
		t.Fatalf("DecryptStream failed: %v", err)
	}

	if !bytes.Equal(recovered.Bytes(), plaintext) {
		t.Errorf("recovered plaintext mismatch: got %q, want %q", recovered.Bytes(), plaintext)
	}
}

func TestEncryptDecryptMultiChunk(t *testing.T) {
	s, err := NewStream(testKey(t))
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}

	plaintext := make([]byte, chunkSize*2+1024)
	if _, err := rand.Read(plaintext); err != nil {
		t.Fatalf("failed to generate plaintext: %v", err)
	}

	var ciphertext bytes.Buffer
	n, err := s.EncryptStream(&ciphertext, bytes.NewReader(plaintext))
	if err != nil {
		t.Fatalf("EncryptStream failed: %v", err)
	}
	if n != int64(len(plaintext)) {
		t.Errorf("expected %d bytes written, got %d", len(plaintext), n)
	}

	var recovered bytes.Buffer
	if _, err := s.DecryptStream(&recovered, &ciphertext); err != nil {
		t.Fatalf("DecryptStream failed: %v", err)
	}

	if !bytes.Equal(recovered.Bytes(), plaintext) {
		t.Error("recovered plaintext does not match original across multiple chunks")
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	s, err := NewStream(testKey(t))
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}

	var ciphertext bytes.Buffer
	if _, err := s.EncryptStream(&ciphertext, bytes.NewReader([]byte("sensitive data"))); err != nil {
		t.Fatalf("EncryptStream failed: %v", err)
	}

	tampered := ciphertext.Bytes()
	tampered[len(tampered)-1] ^= 0xFF

	var recovered bytes.Buffer
	if _, err := s.DecryptStream(&recovered, bytes.NewReader(tampered)); err == nil {
		t.Error("expected authentication failure on tampered ciphertext")
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	s1, err := NewStream(testKey(t))
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}
	s2, err := NewStream(testKey(t))
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}

	var ciphertext bytes.Buffer
	if _, err := s1.EncryptStream(&ciphertext, bytes.NewReader([]byte("hello"))); err != nil {
		t.Fatalf("EncryptStream failed: %v", err)
	}

	var recovered bytes.Buffer
	if _, err := s2.DecryptStream(&recovered, &ciphertext); err == nil {
		t.Error("expected decryption with wrong key to fail")
	}
}

func TestCopyEncryptedPipelinesWithoutPlaintext(t *testing.T) {
	s, err := NewStream(testKey(t))
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}

	plaintext := []byte("re-encrypt me without touching disk")

	var original bytes.Buffer
	if _, err := s.EncryptStream(&original, bytes.NewReader(plaintext)); err != nil {
		t.Fatalf("EncryptStream failed: %v", err)
	}

	var recopied bytes.Buffer
	if _, err := s.CopyEncrypted(&recopied, bytes.NewReader(original.Bytes())); err != nil {
		t.Fatalf("CopyEncrypted failed: %v", err)
	}

	var recovered bytes.Buffer
	if _, err := s.DecryptStream(&recovered, &recopied); err != nil {
		t.Fatalf("DecryptStream of recopied ciphertext failed: %v", err)
	}

	if !bytes.Equal(recovered.Bytes(), plaintext) {
		t.Error("plaintext did not survive decrypt-then-reencrypt pipeline")
	}
}

func TestNewStreamRejectsWrongKeySize(t *testing.T) {
	if _, err := NewStream([]byte("too short")); err == nil {
		t.Error("expected error for invalid key size")
	}
}
