package blob

import (
	"context"
	"io"

	"github.com/nimbusvault/corestore/internal/circuit"
	"github.com/nimbusvault/corestore/internal/logging"
	"github.com/nimbusvault/corestore/pkg/retry"
)

// Resilient wraps a Backend with the retry/circuit-breaking policy of
// §4.C15: transient faults are retried with backoff, and repeated
// failures trip a breaker so callers fail fast against a backend that
// is already down, rather than piling up retries on top of it.
//
// Put is never retried here: src is an io.Reader that may already be
// partially consumed by a failed attempt, and re-reading it would
// either resend truncated bytes or panic on a non-seekable stream. Put
// is still breaker-guarded, just not retry-wrapped.
type Resilient struct {
	backend Backend
	retryer *retry.Retryer
	breaker *circuit.CircuitBreaker
}

// NewResilient wraps backend with retry and circuit-breaking. name
// identifies the breaker in metrics/logs (e.g. "blob.local", "blob.s3").
func NewResilient(name string, backend Backend, retryCfg retry.Config, breakerCfg circuit.Config) *Resilient {
	breakerCfg.OnStateChange = func(n string, from, to circuit.State) {
		logging.WithComponent("blob").Warn().
			Str("breaker", n).Str("from", from.String()).Str("to", to.String()).
			Msg("blob backend circuit breaker state change")
	}
	return &Resilient{
		backend: backend,
		retryer: retry.New(retryCfg),
		breaker: circuit.NewCircuitBreaker(name, breakerCfg),
	}
}

var _ Backend = (*Resilient)(nil)

func (r *Resilient) Put(ctx context.Context, key string, src io.Reader) error {
	return r.breaker.ExecuteWithContext(ctx, func(ctx context.Context) error {
		return r.backend.Put(ctx, key, src)
	})
}

func (r *Resilient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	var rc io.ReadCloser
	err := r.breaker.ExecuteWithContext(ctx, func(ctx context.Context) error {
		return r.retryer.DoWithContext(ctx, func(ctx context.Context) error {
			var err error
			rc, err = r.backend.Get(ctx, key)
			return err
		})
	})
	return rc, err
}

func (r *Resilient) Delete(ctx context.Context, key string) error {
	return r.breaker.ExecuteWithContext(ctx, func(ctx context.Context) error {
		return r.retryer.DoWithContext(ctx, func(ctx context.Context) error {
			return r.backend.Delete(ctx, key)
		})
	})
}

func (r *Resilient) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.breaker.ExecuteWithContext(ctx, func(ctx context.Context) error {
		return r.retryer.DoWithContext(ctx, func(ctx context.Context) error {
			var err error
			exists, err = r.backend.Exists(ctx, key)
			return err
		})
	})
	return exists, err
}

func (r *Resilient) ListKeys(ctx context.Context, pageToken string, pageSize int) (KeyPage, error) {
	var page KeyPage
	err := r.breaker.ExecuteWithContext(ctx, func(ctx context.Context) error {
		return r.retryer.DoWithContext(ctx, func(ctx context.Context) error {
			var err error
			page, err = r.backend.ListKeys(ctx, pageToken, pageSize)
			return err
		})
	})
	return page, err
}

func (r *Resilient) Rename(ctx context.Context, oldKey, newKey string) error {
	return r.breaker.ExecuteWithContext(ctx, func(ctx context.Context) error {
		return r.retryer.DoWithContext(ctx, func(ctx context.Context) error {
			return r.backend.Rename(ctx, oldKey, newKey)
		})
	})
}
