package resilience

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPClient wraps an http.Client with timeout, circuit-breaker and optional
// retry logic. Only idempotent methods are retried.
type HTTPClient struct {
	Client      *http.Client
	Breaker     *Breaker
	BaseBackoff time.Duration
	MaxAttempts int
	Jitter      float64
	Timeout     time.Duration
	Target      string
	Logger      *zerolog.Logger
}

// Do executes req. A 5xx response counts as a breaker failure but is still
// returned to the caller when no attempts remain; the caller owns its body.
// When the breaker is open ErrOpenCircuit is returned without a network call.
// Cancellation of ctx is not reported to the breaker.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	breaker := cl.Breaker
	if breaker == nil {
		breaker = NewBreaker(1, 1, time.Second)
	}
	maxAttempts := cl.MaxAttempts
	if maxAttempts <= 0 || !idempotent(req.Method) {
		maxAttempts = 1
	}

	body, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !breaker.Allow(ctx) {
			cl.observe("open_circuit", 0)
			return nil, ErrOpenCircuit
		}
		start := time.Now()
		resp, err := cl.doOnce(ctx, cloneRequest(ctx, req, body))
		elapsed := time.Since(start)
		switch {
		case err != nil && ctx.Err() != nil:
			// cancelled by the caller
			breaker.Release()
			cl.observe("canceled", elapsed)
			return nil, err
		case err != nil:
			breaker.Report(ctx, false)
			cl.observe("error", elapsed)
			lastErr = err
		case resp.StatusCode >= http.StatusInternalServerError:
			breaker.Report(ctx, false)
			cl.observe("server_error", elapsed)
			if attempt == maxAttempts {
				return resp, nil
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			lastErr = errors.New(resp.Status)
		default:
			breaker.Report(ctx, true)
			cl.observe("ok", elapsed)
			return resp, nil
		}
		if ctx.Err() != nil || attempt == maxAttempts {
			break
		}
		wait := Backoff(cl.BaseBackoff, attempt, cl.Jitter)
		cl.logger().Debug().Str("target", cl.Target).Int("attempt", attempt).Dur("backoff", wait).Err(lastErr).Msg("upstream_retry")
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func (cl HTTPClient) doOnce(ctx context.Context, req *http.Request) (*http.Response, error) {
	timeout := cl.Timeout
	if timeout <= 0 {
		return cl.Client.Do(req)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	resp, err := cl.Client.Do(req.WithContext(callCtx))
	if err != nil {
		cancel()
		return nil, err
	}
	// the body must stay readable after doOnce returns
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (cl HTTPClient) observe(result string, elapsed time.Duration) {
	target := cl.Target
	if target == "" {
		target = "default"
	}
	RequestDuration.WithLabelValues(target, result).Observe(float64(elapsed) / float64(time.Millisecond))
}

func (cl HTTPClient) logger() *zerolog.Logger {
	if cl.Logger == nil {
		return &breakerNopLogger
	}
	return cl.Logger
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	_ = req.Body.Close()
	return data, nil
}

func cloneRequest(ctx context.Context, req *http.Request, body []byte) *http.Request {
	clone := req.Clone(ctx)
	if body != nil {
		clone.Body = io.NopCloser(bytes.NewReader(body))
		clone.ContentLength = int64(len(body))
		clone.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}
	return clone
}
