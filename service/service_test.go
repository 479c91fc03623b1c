package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fooService struct {
	*BaseService
	started int
	stopped int
}

func newFooService() *fooService {
	fs := &fooService{}
	fs.BaseService = NewBaseService(nil, "fooService", fs)
	return fs
}

func (fs *fooService) OnStart(context.Context) error { fs.started++; return nil }
func (fs *fooService) OnStop()                       { fs.stopped++ }

func TestStartStopLifecycle(t *testing.T) {
	fs := newFooService()
	require.NoError(t, fs.Start(context.Background()))
	require.True(t, fs.IsRunning())
	require.Equal(t, 1, fs.started)

	require.NoError(t, fs.Stop())
	require.False(t, fs.IsRunning())
	require.Equal(t, 1, fs.stopped)
}

func TestDoubleStartFails(t *testing.T) {
	fs := newFooService()
	require.NoError(t, fs.Start(context.Background()))
	require.ErrorIs(t, fs.Start(context.Background()), ErrAlreadyStarted)
}

func TestStopWithoutStartFails(t *testing.T) {
	fs := newFooService()
	require.ErrorIs(t, fs.Stop(), ErrNotStarted)
}

func TestContextCancelStopsService(t *testing.T) {
	fs := newFooService()
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, fs.Start(ctx))
	cancel()

	require.Eventually(t, func() bool { return !fs.IsRunning() }, time.Second, time.Millisecond)
}
