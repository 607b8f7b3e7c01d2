package s3

import (
	"errors"
	"testing"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corestoreerrors "github.com/nimbusvault/corestore/pkg/errors"
)

func TestTranslateErrorNoSuchKey(t *testing.T) {
	b := &Backend{bucket: "test"}
	err := b.translateError(&s3types.NoSuchKey{}, "Get", "missing.bin")

	var e *corestoreerrors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, corestoreerrors.KindNotFound, e.Kind)
}

func TestTranslateErrorFallsBackToUnavailable(t *testing.T) {
	b := &Backend{bucket: "test"}
	err := b.translateError(errors.New("connection refused"), "Put", "x.bin")

	var e *corestoreerrors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, corestoreerrors.KindUnavailable, e.Kind)
}

func TestNewRejectsEmptyBucket(t *testing.T) {
	_, err := New(nil, Config{})
	require.Error(t, err)
}
