package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibe-cli/vibe/internal/errors"
)

// fakeProvider returns scripted results in order.
type fakeProvider struct {
	results []fakeResult
	calls   int
}

type fakeResult struct {
	resp *Response
	err  error
}

func (f *fakeProvider) Name() string         { return "fake" }
func (f *fakeProvider) DefaultModel() string { return "fake-model" }

func (f *fakeProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if f.calls >= len(f.results) {
		return nil, errors.ErrProviderUnavailable("fake")
	}
	r := f.results[f.calls]
	f.calls++
	return r.resp, r.err
}

func (f *fakeProvider) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	ch := make(chan Chunk)
	close(ch)
	return ch, nil
}

func newTestRetrier(inner Provider, attempts int) (*Retrier, *[]time.Duration) {
	r := NewRetrier(inner, attempts, time.Second)
	var delays []time.Duration
	r.sleep = func(d time.Duration) { delays = append(delays, d) }
	return r, &delays
}

func TestRetryRateLimitThenSuccess(t *testing.T) {
	fake := &fakeProvider{results: []fakeResult{
		{err: errors.ErrProviderRateLimit("fake")},
		{err: errors.ErrProviderRateLimit("fake")},
		{resp: &Response{Content: "third time lucky"}},
	}}
	r, delays := newTestRetrier(fake, 3)

	resp, err := r.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", resp.Content)
	assert.Equal(t, 3, fake.calls)
	// Exactly two backoffs: 1s then 2s.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *delays)
}

func TestRetryExhausted(t *testing.T) {
	fake := &fakeProvider{results: []fakeResult{
		{err: errors.ErrProviderTimeout("fake", "60s")},
		{err: errors.ErrProviderTimeout("fake", "60s")},
		{err: errors.ErrProviderTimeout("fake", "60s")},
	}}
	r, delays := newTestRetrier(fake, 3)

	_, err := r.Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeProviderTimeout))
	assert.Equal(t, 3, fake.calls)
	assert.Len(t, *delays, 2)
}

func TestNoRetryOnAuthError(t *testing.T) {
	fake := &fakeProvider{results: []fakeResult{
		{err: errors.ErrProviderAuth("fake", "FAKE_API_KEY")},
		{resp: &Response{Content: "never reached"}},
	}}
	r, delays := newTestRetrier(fake, 3)

	_, err := r.Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeProviderAuth))
	assert.Equal(t, 1, fake.calls)
	assert.Empty(t, *delays)
}

func TestNoRetryOnInvalidRequest(t *testing.T) {
	fake := &fakeProvider{results: []fakeResult{
		{err: errors.ErrProviderInvalidRequest("fake", "bad model")},
	}}
	r, _ := newTestRetrier(fake, 3)

	_, err := r.Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 1, fake.calls)
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := &fakeProvider{results: []fakeResult{
		{err: errors.ErrProviderRateLimit("fake")},
	}}
	r, _ := newTestRetrier(fake, 3)
	cancel()

	_, err := r.Generate(ctx, Request{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fake.calls)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("mistral", 0)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeProviderUnavailable))
}
