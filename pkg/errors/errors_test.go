package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSetsDefaults(t *testing.T) {
	err := New(KindNotFound, "file missing")
	require.Equal(t, KindNotFound, err.Kind)
	assert.Equal(t, 404, err.HTTPStatus())
	assert.False(t, err.Retryable)
	assert.False(t, err.Timestamp.IsZero())
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:       404,
		KindConflict:       409,
		KindInvalidPath:    400,
		KindQuotaExceeded:  413,
		KindIntegrityError: 409,
		KindUnavailable:    503,
		KindInternal:       500,
	}
	for kind, want := range cases {
		assert.Equal(t, want, New(kind, "x").HTTPStatus(), "kind=%s", kind)
	}
}

func TestUnavailableIsRetryableByDefault(t *testing.T) {
	assert.True(t, New(KindUnavailable, "cache down").Retryable)
	assert.False(t, New(KindInternal, "boom").Retryable)
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := Wrap(KindUnavailable, cause, "cache unreachable")

	assert.Same(t, cause, wrapped.Unwrap())
	assert.True(t, errors.Is(wrapped, cause))
}

func TestIsMatchesOnKindAcrossWrapping(t *testing.T) {
	err := New(KindConflict, "duplicate name").WithComponent("tree").WithOperation("rename")
	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(err, KindNotFound))
}

func TestErrorStringIncludesComponentAndOperation(t *testing.T) {
	err := New(KindInvalidPath, "traversal rejected").WithComponent("pathresolver").WithOperation("safe_join")
	assert.Contains(t, err.Error(), "pathresolver")
	assert.Contains(t, err.Error(), "safe_join")
	assert.Contains(t, err.Error(), "traversal rejected")
}

func TestWithContextAndDetailAccumulate(t *testing.T) {
	err := New(KindInternal, "boom").
		WithContext("user_id", "u1").
		WithDetail("attempt", 3)

	assert.Equal(t, "u1", err.Context["user_id"])
	assert.Equal(t, 3, err.Details["attempt"])
}

func TestJSONRoundTripsKind(t *testing.T) {
	err := New(KindQuotaExceeded, "over limit")
	payload := err.JSON()
	assert.Contains(t, payload, string(KindQuotaExceeded))
}

func TestAsFindsConcreteError(t *testing.T) {
	base := New(KindConflict, "dup")

	var target *Error
	require.True(t, As(base, &target))
	assert.Equal(t, KindConflict, target.Kind)
}
