package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalContext is a context cancelled by SIGINT or SIGTERM that remembers
// which signal arrived.
type SignalContext struct {
	context.Context
	Cancel context.CancelFunc

	mu       sync.Mutex
	received os.Signal
}

// NewSignalContext works like signal.NotifyContext and also records the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{Context: ctx, Cancel: cancel}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go sc.watch(ch)
	return sc
}

func (sc *SignalContext) watch(ch chan os.Signal) {
	defer signal.Stop(ch)
	select {
	case sig := <-ch:
		sc.mu.Lock()
		sc.received = sig
		sc.mu.Unlock()
		sc.Cancel()
	case <-sc.Done():
	}
}

// Signal returns the signal that cancelled the context, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.received
}
