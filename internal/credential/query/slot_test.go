package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSlotStoresCompletedResult(t *testing.T) {
	var s Slot[[]string]

	_, loaded := s.Value()
	assert.False(t, loaded)

	v, err := s.Run(context.Background(), func(context.Context) ([]string, error) {
		return []string{"7"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, v)

	stored, loaded := s.Value()
	assert.True(t, loaded)
	assert.Equal(t, []string{"7"}, stored)
}

func TestSlotErrorKeepsPreviousValue(t *testing.T) {
	var s Slot[int]
	_, err := s.Run(context.Background(), func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = s.Run(context.Background(), func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	v, _ := s.Value()
	assert.Equal(t, 1, v)
}

func TestNewerRunSupersedesInFlightRun(t *testing.T) {
	var s Slot[string]
	started := make(chan struct{})
	staleDone := make(chan error, 1)

	go func() {
		_, err := s.Run(context.Background(), func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			return "stale", nil
		})
		staleDone <- err
	}()

	<-started
	v, err := s.Run(context.Background(), func(context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)

	assert.ErrorIs(t, <-staleDone, ErrSuperseded)
	stored, _ := s.Value()
	assert.Equal(t, "fresh", stored)
}

func TestGroupKeepsSlotsIndependent(t *testing.T) {
	var g Group[string, int]

	_, ok := g.Peek("a")
	assert.False(t, ok)

	a := g.Slot("a")
	assert.Same(t, a, g.Slot("a"))
	assert.NotSame(t, a, g.Slot("b"))

	_, err := a.Run(context.Background(), func(context.Context) (int, error) { return 5, nil })
	require.NoError(t, err)

	_, loaded := g.Slot("b").Value()
	assert.False(t, loaded)
}

func TestRefreshDoesNotFailInFlightRun(t *testing.T) {
	var s Slot[string]
	started := make(chan struct{})
	release := make(chan struct{})
	runDone := make(chan struct {
		v   string
		err error
	}, 1)

	go func() {
		v, err := s.Run(context.Background(), func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "before", ctx.Err()
		})
		runDone <- struct {
			v   string
			err error
		}{v, err}
	}()

	<-started
	require.NoError(t, s.Refresh(context.Background(), func(context.Context) (string, error) {
		return "after", nil
	}))
	close(release)

	got := <-runDone
	require.NoError(t, got.err)
	assert.Equal(t, "after", got.v, "the run returns the fresher refreshed value")
	stored, _ := s.Value()
	assert.Equal(t, "after", stored)
}

func TestRefreshErrorKeepsValue(t *testing.T) {
	var s Slot[int]
	_, err := s.Run(context.Background(), func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	boom := errors.New("boom")
	assert.ErrorIs(t, s.Refresh(context.Background(), func(context.Context) (int, error) { return 0, boom }), boom)

	v, _ := s.Value()
	assert.Equal(t, 1, v)
}

func TestLaterRunWinsOverEarlierRefresh(t *testing.T) {
	var s Slot[string]
	refreshing := make(chan struct{})
	release := make(chan struct{})
	refreshDone := make(chan error, 1)

	go func() {
		refreshDone <- s.Refresh(context.Background(), func(context.Context) (string, error) {
			close(refreshing)
			<-release
			return "refresh", nil
		})
	}()

	<-refreshing
	v, err := s.Run(context.Background(), func(context.Context) (string, error) { return "run", nil })
	require.NoError(t, err)
	assert.Equal(t, "run", v)
	close(release)
	require.NoError(t, <-refreshDone)

	stored, _ := s.Value()
	assert.Equal(t, "run", stored)
}
