package solver

import (
	"context"
	"runtime"
)

// Pool bounds the number of concurrent solves so optimization bursts cannot
// starve the API goroutines of CPU.
type Pool struct {
	sem chan struct{}
}

// NewPool creates a pool of the given size. Size zero means GOMAXPROCS.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Do runs fn once a slot is free. Returns the context error if the caller
// gives up while waiting.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.sem }()
	return fn()
}
