// Package service provides the classical-inheritance-style
// start/stop lifecycle every long-running component in this node
// embeds, adapted from the teacher's own libs/service package: a
// BaseService that a concrete Implementation embeds, exposing
// Start/Stop/IsRunning/Wait around OnStart/OnStop hooks.
package service

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/polkadot-go/synccore/log"
)

// ErrAlreadyStarted is returned when Start is called on a service
// already running.
var ErrAlreadyStarted = errors.New("service: already started")

// ErrAlreadyStopped is returned when Stop is called on a service
// already stopped.
var ErrAlreadyStopped = errors.New("service: already stopped")

// ErrNotStarted is returned when Stop is called on a service that was
// never started.
var ErrNotStarted = errors.New("service: not started")

// Service is anything with a start/stop lifecycle.
type Service interface {
	Start(context.Context) error
	Stop() error
	IsRunning() bool
	String() string
	Wait()
}

// Implementation is what a concrete service supplies BaseService to
// drive.
type Implementation interface {
	Service
	OnStart(context.Context) error
	OnStop()
}

// BaseService implements the common start/stop bookkeeping so a
// concrete service only needs to write OnStart/OnStop.
type BaseService struct {
	logger  log.Logger
	name    string
	started uint32
	stopped uint32
	quit    chan struct{}

	impl Implementation
}

func NewBaseService(logger log.Logger, name string, impl Implementation) *BaseService {
	if logger == nil {
		logger = log.NopLogger()
	}
	return &BaseService{logger: logger, name: name, quit: make(chan struct{}), impl: impl}
}

// Start calls OnStart and, once it returns without error, watches ctx
// for cancellation to trigger an automatic Stop.
func (bs *BaseService) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&bs.started, 0, 1) {
		return ErrAlreadyStarted
	}
	if atomic.LoadUint32(&bs.stopped) == 1 {
		atomic.StoreUint32(&bs.started, 0)
		return ErrAlreadyStopped
	}

	bs.logger.Info("starting service", "service", bs.name)
	if err := bs.impl.OnStart(ctx); err != nil {
		atomic.StoreUint32(&bs.started, 0)
		return err
	}

	go func() {
		select {
		case <-bs.quit:
		case <-ctx.Done():
			if !bs.impl.IsRunning() {
				return
			}
			if err := bs.Stop(); err != nil {
				bs.logger.Error("stop after context cancel failed", "service", bs.name, "err", err)
			}
		}
	}()
	return nil
}

// Stop calls OnStop and closes the quit channel, waking any Wait
// callers.
func (bs *BaseService) Stop() error {
	if !atomic.CompareAndSwapUint32(&bs.stopped, 0, 1) {
		return ErrAlreadyStopped
	}
	if atomic.LoadUint32(&bs.started) == 0 {
		atomic.StoreUint32(&bs.stopped, 0)
		return ErrNotStarted
	}
	bs.logger.Info("stopping service", "service", bs.name)
	bs.impl.OnStop()
	close(bs.quit)
	return nil
}

func (bs *BaseService) IsRunning() bool {
	return atomic.LoadUint32(&bs.started) == 1 && atomic.LoadUint32(&bs.stopped) == 0
}

func (bs *BaseService) Wait() { <-bs.quit }

func (bs *BaseService) String() string { return bs.name }
