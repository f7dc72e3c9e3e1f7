package embeddings

import (
	"context"
	"fmt"
	"sync"
)

// Lazy defers building a provider until the first EmbedBatch, so the
// server starts listening before a model download completes. A failed
// build is retried on the next call. Lazy is safe for concurrent use; one
// provider is shared by all callers.
type Lazy struct {
	build     func() (Provider, error)
	dimension int

	// inflight is held for reading by running EmbedBatch calls and for
	// writing by Close.
	inflight sync.RWMutex

	mu       sync.Mutex
	provider Provider
	closed   bool
}

// NewLazy returns a Lazy that builds its provider from cfg.
func NewLazy(cfg ProviderConfig) *Lazy {
	return newLazy(func() (Provider, error) { return NewProvider(cfg) }, detectDimensionFromModel(cfg.Model))
}

func newLazy(build func() (Provider, error), dimension int) *Lazy {
	return &Lazy{build: build, dimension: dimension}
}

// get returns the provider, building it if needed.
func (l *Lazy) get() (Provider, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, fmt.Errorf("%w: provider closed", ErrEmbeddingFailed)
	}
	if l.provider != nil {
		return l.provider, nil
	}
	p, err := l.build()
	if err != nil {
		return nil, fmt.Errorf("%w: loading model: %w", ErrEmbeddingFailed, err)
	}
	l.provider = p
	return p, nil
}

// Warm builds the provider now. Servers call it in the background at
// startup.
func (l *Lazy) Warm() error {
	_, err := l.get()
	return err
}

// Ready reports whether the provider has been built.
func (l *Lazy) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.provider != nil
}

func (l *Lazy) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	l.inflight.RLock()
	defer l.inflight.RUnlock()

	p, err := l.get()
	if err != nil {
		return nil, err
	}
	return p.EmbedBatch(ctx, texts)
}

// Dimension returns the built provider's dimension, or the dimension
// inferred from the model name before then.
func (l *Lazy) Dimension() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.provider != nil {
		return l.provider.Dimension()
	}
	return l.dimension
}

// Close waits for running EmbedBatch calls, then closes the provider if it
// was built. Later calls fail.
func (l *Lazy) Close() error {
	l.inflight.Lock()
	defer l.inflight.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if l.provider == nil {
		return nil
	}
	err := l.provider.Close()
	l.provider = nil
	return err
}
