package datacache_test

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/core/ports"
	"go.trai.ch/timescope/internal/core/ports/mocks"
	"go.trai.ch/timescope/internal/engine/datacache"
	"go.trai.ch/timescope/internal/engine/frame"
	"go.trai.ch/timescope/internal/engine/state"
	"go.trai.ch/timescope/internal/engine/timeaxis"
	"go.uber.org/mock/gomock"
)

type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

func intPtr(i int) *int { return &i }

func newAxis(clock clockwork.Clock, at int64) *timeaxis.TimeAxis {
	a := timeaxis.New(state.Options{
		Time:   domain.Int(at),
		Clock:  clock,
		Frames: frame.NewManual(),
	})
	a.SetAxisLength([2]float64{50, 50})
	return a
}

// rowsFor answers every tile with two rows inside it and one just before it.
func rowsFor(desc domain.ChunkDesc) domain.ChunkResult {
	start := decimal.Zero
	if desc.Range.Start.Valid {
		start = desc.Range.Start.Decimal
	}
	row := func(offset int64) domain.Row {
		return domain.NewRow(start.Add(decimal.NewFromInt(offset)), map[string]domain.Value{"v": domain.Int(offset)})
	}
	return domain.ChunkResult{ID: desc.ID, Data: []domain.Row{row(30), row(-5), row(10)}}
}

func times(rows []domain.Row) []int64 {
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.MinTime.Decimal.IntPart())
	}
	return out
}

func tileIDs(tiles []datacache.Tile) []string {
	out := make([]string, 0, len(tiles))
	for _, t := range tiles {
		out = append(out, t.Desc.ID)
	}
	return out
}

func TestCache_LoadsAndMergesTiles(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
		loader := mocks.NewMockChunkLoader(ctrl)
		loader.EXPECT().LoadChunk(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, desc domain.ChunkDesc) (domain.ChunkResult, error) {
				return rowsFor(desc), nil
			}).Times(4)

		c := datacache.New(datacache.Options{Name: "prices", Loader: loader, ChunkSize: intPtr(50), Clock: clock})
		axis := newAxis(clock, 1000)

		c.Update(axis)
		synctest.Wait()

		assert.Equal(t, []string{"z0:seq19", "z0:seq20", "z0:seq21", "z0:seq22"}, tileIDs(c.Tiles()))
		for _, tile := range c.Tiles() {
			assert.Equal(t, domain.TileLoaded, tile.State)
		}
		assert.Equal(t, []int64{960, 980, 1010, 1030, 1060, 1080, 1110, 1130}, times(c.Data()))
		assert.Positive(t, c.Revision())

		// Resident, unexpired tiles are not loaded again.
		c.Update(axis)
		synctest.Wait()
		assert.Len(t, c.Data(), 8)
	})
}

func TestCache_MergeIsIdempotent(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
		loader := mocks.NewMockChunkLoader(ctrl)
		loader.EXPECT().LoadChunk(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, desc domain.ChunkDesc) (domain.ChunkResult, error) {
				return rowsFor(desc), nil
			}).Times(8)

		c := datacache.New(datacache.Options{Loader: loader, ChunkSize: intPtr(50), Clock: clock})
		axis := newAxis(clock, 1000)

		c.Update(axis)
		synctest.Wait()
		first := c.Data()

		c.Invalidate()
		c.Update(axis)
		synctest.Wait()

		assert.Equal(t, first, c.Data())
	})
}

func TestCache_FailingTileDoesNotBlockSiblings(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
		loader := mocks.NewMockChunkLoader(ctrl)
		logger := mocks.NewMockLogger(ctrl)

		boom := errors.New("upstream unavailable")
		loader.EXPECT().LoadChunk(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, desc domain.ChunkDesc) (domain.ChunkResult, error) {
				if desc.Seq == 20 {
					return domain.ChunkResult{}, boom
				}
				return rowsFor(desc), nil
			}).Times(4)
		logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
			assert.Contains(t, err.Error(), boom.Error())
		}).Times(2)

		c := datacache.New(datacache.Options{Loader: loader, Logger: logger, ChunkSize: intPtr(50), Clock: clock})
		axis := newAxis(clock, 1000)

		c.Update(axis)
		synctest.Wait()

		assert.Len(t, c.Data(), 6)
		for _, tile := range c.Tiles() {
			if tile.Desc.Seq == 20 {
				assert.Equal(t, domain.TileError, tile.State)
				require.Error(t, tile.Err)
			} else {
				assert.Equal(t, domain.TileLoaded, tile.State)
			}
		}

		// Only the failed tile is retried.
		loader.EXPECT().LoadChunk(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, desc domain.ChunkDesc) (domain.ChunkResult, error) {
				assert.Equal(t, int64(20), desc.Seq)
				return domain.ChunkResult{}, boom
			}).Times(1)
		c.Update(axis)
		synctest.Wait()
	})
}

func TestCache_ReloadsExpiredTilesInPlace(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		var clock fakeClock = clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
		loader := mocks.NewMockChunkLoader(ctrl)
		telemetry := mocks.NewMockTelemetry(ctrl)
		vertex := mocks.NewMockVertex(ctrl)

		release := make(chan struct{})
		calls := 0
		loader.EXPECT().LoadChunk(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, desc domain.ChunkDesc) (domain.ChunkResult, error) {
				calls++
				if calls > 1 {
					<-release
				}
				res := rowsFor(desc)
				res.ExpiresAt = clock.Now().Add(time.Minute)
				return res, nil
			}).Times(2)
		telemetry.EXPECT().Record(gomock.Any(), "load feed/z0").
			DoAndReturn(func(ctx context.Context, _ string) (context.Context, ports.Vertex) {
				return ctx, vertex
			}).Times(2)
		gomock.InOrder(
			vertex.EXPECT().Complete(nil),
			vertex.EXPECT().Cached(),
			vertex.EXPECT().Complete(nil),
		)

		c := datacache.New(datacache.Options{
			Name:      "feed",
			Loader:    loader,
			Telemetry: telemetry,
			ChunkSize: intPtr(0),
			Clock:     clock,
		})
		axis := newAxis(clock, 1000)

		c.Update(axis)
		synctest.Wait()
		require.Len(t, c.Data(), 3)
		revision := c.Revision()

		clock.Advance(30 * time.Second)
		c.Update(axis)
		synctest.Wait()

		clock.Advance(time.Minute)
		c.Update(axis)
		synctest.Wait()
		assert.Equal(t, domain.TileLoading, c.Tiles()[0].State)
		assert.Len(t, c.Data(), 3, "stale rows keep serving while the reload runs")

		close(release)
		synctest.Wait()
		assert.Equal(t, domain.TileLoaded, c.Tiles()[0].State)
		assert.Equal(t, revision, c.Revision(), "identical rows are not merged again")
	})
}

func TestCache_PurgeWaitsForInteraction(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
		loader := mocks.NewMockChunkLoader(ctrl)
		loader.EXPECT().LoadChunk(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, desc domain.ChunkDesc) (domain.ChunkResult, error) {
				return rowsFor(desc), nil
			}).Times(8)

		c := datacache.New(datacache.Options{Loader: loader, ChunkSize: intPtr(50), Immediate: true, Clock: clock})
		axis := newAxis(clock, 1000)

		c.Update(axis)
		synctest.Wait()
		require.Len(t, c.Data(), 8)

		axis.DragStart(50)
		axis.DragUpdate(1050, 1000)
		c.Update(axis)
		synctest.Wait()
		assert.Equal(t, []string{"z0:seq-1", "z0:seq0", "z0:seq1", "z0:seq2"}, tileIDs(c.Tiles()))
		assert.Len(t, c.Data(), 16, "purge is deferred while dragging")

		axis.DragEnd()
		require.False(t, axis.Editing())
		c.Update(axis)
		synctest.Wait()

		assert.Equal(t, []int64{-40, -20, 10, 30, 60, 80, 110, 130}, times(c.Data()))
		assert.True(t, c.Window().Equal(domain.NewRange(decimal.NewFromInt(-50), decimal.NewFromInt(150))))
	})
}

func TestCache_InstantValueCentresOnCursor(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
		loader := mocks.NewMockChunkLoader(ctrl)
		loader.EXPECT().LoadChunk(gomock.Any(), gomock.Any()).
			Return(domain.ChunkResult{}, nil).AnyTimes()

		c := datacache.New(datacache.Options{Loader: loader, ChunkSize: intPtr(50), InstantValue: true, Clock: clock})
		c.Update(newAxis(clock, 1000))
		synctest.Wait()

		assert.Equal(t, []string{"z0:seq19", "z0:seq20", "z0:seq21"}, tileIDs(c.Tiles()))
	})
}

func TestCache_LateResults(t *testing.T) {
	setup := func(t *testing.T) (*datacache.Cache, *timeaxis.TimeAxis, chan struct{}) {
		ctrl := gomock.NewController(t)
		clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
		loader := mocks.NewMockChunkLoader(ctrl)
		release := make(chan struct{})
		loader.EXPECT().LoadChunk(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, desc domain.ChunkDesc) (domain.ChunkResult, error) {
				<-release
				return rowsFor(desc), nil
			}).AnyTimes()
		c := datacache.New(datacache.Options{Loader: loader, ChunkSize: intPtr(0), Clock: clock})
		return c, newAxis(clock, 1000), release
	}

	t.Run("merged when tracked again after invalidate", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			c, axis, release := setup(t)
			c.Update(axis)
			c.Invalidate()
			c.Update(axis)
			close(release)
			synctest.Wait()
			assert.Len(t, c.Data(), 3)
		})
	})

	t.Run("dropped when no longer tracked", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			c, axis, release := setup(t)
			c.Update(axis)
			c.Invalidate()
			close(release)
			synctest.Wait()
			assert.Empty(t, c.Data())
		})
	})

	t.Run("dropped after close", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			c, axis, release := setup(t)
			c.Update(axis)
			c.Close()
			close(release)
			synctest.Wait()
			assert.Empty(t, c.Data())
			assert.Empty(t, c.Tiles())

			c.Update(axis)
			synctest.Wait()
			assert.Empty(t, c.Tiles())
		})
	})
}
