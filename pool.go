package html2pdf

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps browser instances to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2

	// DefaultAcquireTimeout bounds how long Convert waits for a free converter.
	DefaultAcquireTimeout = 30 * time.Second
)

// ConverterPool manages a pool of Converter instances for concurrent requests.
// Each converter has its own browser instance, so the pool size is also the
// cap on simultaneous renders.
// Converters are created lazily on first acquire to avoid startup delay.
type ConverterPool struct {
	size           int
	opts           []Option
	newConverter   func(...Option) *Converter
	acquireTimeout time.Duration
	converters     []*Converter
	sem            chan *Converter
	mu             sync.Mutex
	created        int
	closed         bool
	done           chan struct{}
}

// NewConverterPool creates a pool with capacity for n Converter instances.
// Converters are built with opts when first acquired, not at pool creation.
func NewConverterPool(n int, opts ...Option) *ConverterPool {
	if n < 1 {
		n = 1
	}

	return &ConverterPool{
		size:           n,
		opts:           opts,
		newConverter:   NewConverter,
		acquireTimeout: DefaultAcquireTimeout,
		converters:     make([]*Converter, 0, n),
		sem:            make(chan *Converter, n),
		done:           make(chan struct{}),
	}
}

// SetAcquireTimeout changes how long Convert waits for a free converter.
// Non-positive values are ignored.
func (p *ConverterPool) SetAcquireTimeout(d time.Duration) {
	if d > 0 {
		p.acquireTimeout = d
	}
}

// Acquire gets a converter from the pool, creating one if needed.
// Blocks until a converter is released, ctx is done, or the pool is closed.
// A ctx canceled by the caller yields context.Canceled; a ctx that runs out of
// time yields ErrPoolBusy.
func (p *ConverterPool) Acquire(ctx context.Context) (*Converter, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.mu.Unlock()

	// Try to get an existing converter (non-blocking)
	select {
	case conv := <-p.sem:
		return p.checkout(conv)
	default:
	}

	// Check if we can create a new converter
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		// Create new converter outside the lock
		conv := p.newConverter(p.opts...)

		p.mu.Lock()
		p.converters = append(p.converters, conv)
		p.mu.Unlock()

		return p.checkout(conv)
	}
	p.mu.Unlock()

	// All converters created, wait for one to be released
	select {
	case conv := <-p.sem:
		return p.checkout(conv)
	case <-p.done:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrPoolBusy, ctx.Err())
	}
}

// checkout hands conv to the caller unless the pool closed in the meantime.
// Converters closed by Close must never render again: their renderer would
// lazily start a new browser.
func (p *ConverterPool) checkout(conv *Converter) (*Converter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	return conv, nil
}

// Release returns a converter to the pool.
// The lock is held while sending; the channel has room for every converter
// ever created, so the send never blocks.
func (p *ConverterPool) Release(conv *Converter) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.sem <- conv
}

// Convert acquires a converter, runs the conversion and releases it.
// Waiting for a free converter is bounded by the pool's acquire timeout.
func (p *ConverterPool) Convert(ctx context.Context, input Input) ([]byte, error) {
	actx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	conv, err := p.Acquire(actx)
	cancel()
	if err != nil {
		return nil, err
	}
	defer p.Release(conv)

	return conv.Convert(ctx, input)
}

// Close releases all browser resources.
// Returns an aggregated error if multiple converters fail to close.
func (p *ConverterPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	converters := p.converters
	// Drop idle converters; Release no longer refills the channel.
drain:
	for {
		select {
		case <-p.sem:
		default:
			break drain
		}
	}
	p.mu.Unlock()

	var errs []error
	for _, conv := range converters {
		if err := conv.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *ConverterPool) Size() int {
	return p.size
}

// ResolvePoolSize determines the optimal pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func ResolvePoolSize(workers int) int {
	// Explicit value takes priority
	if workers > 0 {
		return workers
	}

	// Auto-calculate based on GOMAXPROCS (adjusted by automaxprocs for containers)
	available := runtime.GOMAXPROCS(0)
	n := available / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
