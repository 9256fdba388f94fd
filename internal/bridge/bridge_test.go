package bridge_test

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/timescope/internal/bridge"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func run(t *testing.T, channels ...*bridge.Channel) {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	t.Cleanup(cancel)
	for _, c := range channels {
		go func() { _ = c.Run(ctx) }()
	}
}

func TestChannel_CallRoundTrip(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		main, worker := bridge.Pipe(nil)
		run(t, main, worker)
		assert.NotEqual(t, main.Origin(), worker.Origin())

		bridge.On(main, domain.CommandLoadMeta, func(_ context.Context, req domain.LoadMetaRequest) (domain.SeriesMeta, error) {
			return domain.SeriesMeta{PMax: domain.Int(42), Color: req.Key}, nil
		})

		var meta domain.SeriesMeta
		err := worker.Call(t.Context(), domain.CommandLoadMeta, domain.LoadMetaRequest{Key: "cpu"}, &meta)
		require.NoError(t, err)
		assert.Equal(t, "cpu", meta.Color)
		assert.Equal(t, int64(42), meta.PMax.Decimal.IntPart())
	})
}

func TestChannel_ConcurrentCallsMatchBySeq(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		main, worker := bridge.Pipe(nil)
		run(t, main, worker)

		release := make(chan struct{})
		bridge.On(main, "echo", func(_ context.Context, n int) (int, error) {
			if n == 1 {
				<-release
			}
			return n * 10, nil
		})

		results := make([]int, 3)
		done := make(chan struct{})
		for i := range results {
			go func() {
				defer func() { done <- struct{}{} }()
				assert.NoError(t, worker.Call(t.Context(), "echo", i, &results[i]))
			}()
		}
		synctest.Wait()
		close(release)
		for range results {
			<-done
		}
		assert.Equal(t, []int{0, 10, 20}, results)
	})
}

func TestChannel_HandlerErrorsReachCaller(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		main, worker := bridge.Pipe(nil)
		run(t, main, worker)

		bridge.On(main, "fail", func(context.Context, struct{}) (struct{}, error) {
			return struct{}{}, errors.New("provider exploded")
		})

		err := worker.Call(t.Context(), "fail", nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "provider exploded")

		err = worker.Call(t.Context(), "missing", nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), domain.ErrUnknownCommand.Error())
	})
}

func TestChannel_EventsKeepOrder(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		main, worker := bridge.Pipe(nil)
		run(t, main, worker)

		var got []int
		bridge.OnEvent(worker, domain.CommandSync, func(n int) { got = append(got, n) })

		for i := range 10 {
			require.NoError(t, main.Emit(domain.CommandSync, i))
		}
		synctest.Wait()
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
	})
}

func TestChannel_UnknownEventIsLogged(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		logger := mocks.NewMockLogger(ctrl)
		logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
			assert.Contains(t, err.Error(), domain.ErrUnknownCommand.Error())
		})

		main, worker := bridge.Pipe(logger)
		run(t, main, worker)

		require.NoError(t, main.Emit("nobody-listens", nil))
		synctest.Wait()
	})
}

func TestChannel_CloseFailsPendingCalls(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		main, worker := bridge.Pipe(nil)
		run(t, main, worker)

		bridge.On(main, "hang", func(ctx context.Context, _ struct{}) (struct{}, error) {
			<-ctx.Done()
			return struct{}{}, ctx.Err()
		})

		errc := make(chan error, 1)
		go func() { errc <- worker.Call(t.Context(), "hang", nil, nil) }()
		synctest.Wait()

		main.Close()
		err := <-errc
		require.Error(t, err)
		assert.Contains(t, err.Error(), domain.ErrChannelClosed.Error())

		<-worker.Done()
		err = worker.Emit(domain.CommandSync, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), domain.ErrChannelClosed.Error())
	})
}
