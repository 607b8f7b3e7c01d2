package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// unreachableRedis points at a port nothing listens on so L2 calls fail
// fast (connection refused) instead of hanging, letting these tests run
// without a live Redis.
var unreachableRedis = RedisConfig{Addr: "127.0.0.1:1"}

func TestServiceGetServesFromL1WithoutTouchingL2(t *testing.T) {
	svc := New(10, unreachableRedis)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	svc.l1.Set("k", []byte("v"), time.Minute)

	v, ok := svc.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}

func TestServiceGetMissFallsThroughL2Gracefully(t *testing.T) {
	svc := New(10, unreachableRedis)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, ok := svc.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestServiceSetPopulatesL1EvenWhenL2Unreachable(t *testing.T) {
	svc := New(10, unreachableRedis)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	svc.Set(ctx, "k", []byte("v"), 60)

	v, ok := svc.l1.Get("k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}

func TestServiceDeleteRemovesFromL1(t *testing.T) {
	svc := New(10, unreachableRedis)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	svc.l1.Set("k", []byte("v"), time.Minute)
	svc.Delete(ctx, "k")

	_, ok := svc.l1.Get("k")
	assert.False(t, ok)
}

func TestInvalidateUserDoesNotPanicWithoutRedis(t *testing.T) {
	svc := New(10, unreachableRedis)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.NotPanics(t, func() { svc.InvalidateUser(ctx, "user-1") })
}

func TestInvalidateFileDoesNotPanicWithoutRedis(t *testing.T) {
	svc := New(10, unreachableRedis)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.NotPanics(t, func() { svc.InvalidateFile(ctx, "user-1", "file-1") })
}
