package renderer_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/timescope/internal/bridge"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/renderer"
)

type harness struct {
	main *bridge.Channel
	r    *renderer.Renderer
	rec  *renderer.Recorder

	loads atomic.Int32

	mu    sync.Mutex
	syncs []domain.SyncMessage
}

func (h *harness) received() []domain.SyncMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.SyncMessage(nil), h.syncs...)
}

// start runs a renderer against a fake coordinating side serving two rows
// just before now.
func start(t *testing.T) *harness {
	t.Helper()
	return startWith(t, domain.SeriesMeta{PMax: domain.Int(8), Zero: domain.Int(0)})
}

func startWith(t *testing.T, meta domain.SeriesMeta) *harness {
	t.Helper()
	main, worker := bridge.Pipe(nil)
	h := &harness{main: main, rec: &renderer.Recorder{}}
	now := domain.FromTime(time.Now())

	bridge.On(main, domain.CommandLoadChunk, func(_ context.Context, req domain.LoadChunkRequest) (domain.ChunkResult, error) {
		h.loads.Add(1)
		return domain.ChunkResult{ID: req.Chunk.ID, Data: []domain.Row{
			domain.NewRow(now.Sub(decimal.NewFromInt(10)), map[string]domain.Value{"value": domain.Int(4)}),
			domain.NewRow(now.Sub(decimal.NewFromInt(5)), map[string]domain.Value{"value": domain.Int(8)}),
		}}, nil
	})
	bridge.On(main, domain.CommandLoadMeta, func(context.Context, domain.LoadMetaRequest) (domain.SeriesMeta, error) {
		return meta, nil
	})
	bridge.On(main, domain.CommandViewChanged, func(context.Context, domain.ViewChanged) (struct{}, error) {
		return struct{}{}, nil
	})
	bridge.OnEvent(main, domain.CommandSync, func(msg domain.SyncMessage) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.syncs = append(h.syncs, msg)
	})

	h.r = renderer.New(renderer.Options{
		Channel: worker,
		Surface: h.rec,
		Clock:   clockwork.NewRealClock(),
		FPS:     10,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.r.Run(ctx) }()
	go func() { _ = main.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return h
}

func (h *harness) open(t *testing.T) {
	t.Helper()
	h.openWith(t, domain.CacheOptions{})
}

func (h *harness) openWith(t *testing.T, opts domain.CacheOptions) {
	t.Helper()
	require.NoError(t, h.main.Call(t.Context(), domain.CommandResize, domain.Size{Width: 100, Height: 10}, nil))
	chunk := 0
	opts.ChunkSize = &chunk
	require.NoError(t, h.main.Emit(domain.CommandOptionsUpdate, domain.RenderOptions{
		Charts: map[string]domain.CacheOptions{"cpu": opts},
	}))
	time.Sleep(time.Second)
}

func TestRenderer_DrawsLoadedRows(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := start(t)
		h.open(t)

		f, ok := h.rec.Last()
		require.True(t, ok)
		assert.Equal(t, domain.Size{Width: 100, Height: 10}, f.Size)
		assert.False(t, f.Time.Valid, "the view starts live")
		require.Len(t, f.Tracks, 1)

		track := f.Tracks[0]
		assert.Equal(t, "cpu", track.Key)
		assert.InDelta(t, 8, track.Meta.PMax.Decimal.InexactFloat64(), 1e-9)
		require.Len(t, track.Points, 2)
		assert.Less(t, track.Points[0].X, track.Points[1].X)
		assert.Less(t, track.Points[1].X, 50.0)
		assert.InDelta(t, 0.5, track.Points[0].Y, 1e-9)
		assert.InDelta(t, 1, track.Points[1].Y, 1e-9)

		require.Len(t, track.Tiles, 1)
		assert.Equal(t, domain.TileLoaded, track.Tiles[0].State)
		assert.Equal(t, int32(1), h.loads.Load())
	})
}

func TestRenderer_ScalesAgainstExtrema(t *testing.T) {
	tests := []struct {
		name string
		meta domain.SeriesMeta
		opts domain.CacheOptions
		want [2]float64
	}{
		{
			name: "symmetric centres zero",
			meta: domain.SeriesMeta{NMin: domain.Int(-8), PMax: domain.Int(8)},
			opts: domain.CacheOptions{Symmetric: true},
			want: [2]float64{0.75, 1},
		},
		{
			name: "log spans the positive extrema",
			meta: domain.SeriesMeta{PMin: domain.Int(4), PMax: domain.Int(8), Scale: domain.ScaleLog},
			want: [2]float64{0, 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				h := startWith(t, tt.meta)
				h.openWith(t, tt.opts)

				f, ok := h.rec.Last()
				require.True(t, ok)
				require.Len(t, f.Tracks, 1)
				require.Len(t, f.Tracks[0].Points, 2)
				assert.InDelta(t, tt.want[0], f.Tracks[0].Points[0].Y, 1e-9)
				assert.InDelta(t, tt.want[1], f.Tracks[0].Points[1].Y, 1e-9)
			})
		})
	}
}

func TestRenderer_ReloadRefetches(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := start(t)
		h.open(t)
		require.Equal(t, int32(1), h.loads.Load())

		require.NoError(t, h.main.Emit(domain.CommandReload, nil))
		time.Sleep(time.Second)
		assert.Equal(t, int32(2), h.loads.Load())
	})
}

func TestRenderer_DropsRemovedCharts(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := start(t)
		h.open(t)

		require.NoError(t, h.main.Emit(domain.CommandOptionsUpdate, domain.RenderOptions{}))
		time.Sleep(time.Second)

		f, ok := h.rec.Last()
		require.True(t, ok)
		assert.Empty(t, f.Tracks)
	})
}

func TestRenderer_PointerSyncsToMain(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := start(t)
		h.open(t)

		var handled bool
		require.NoError(t, h.main.Call(t.Context(), domain.CommandPointer, domain.Pointer{Kind: domain.PointerDragStart, X: 50}, &handled))
		assert.True(t, handled)
		synctest.Wait()

		syncs := h.received()
		require.NotEmpty(t, syncs)
		first := syncs[0]
		require.NotNil(t, first.Time)
		assert.Equal(t, domain.SyncBegin, first.Time.Kind)
		assert.NotEqual(t, h.main.Origin(), first.Origin)

		require.NoError(t, h.main.Call(t.Context(), domain.CommandPointer, domain.Pointer{Kind: "hover"}, &handled))
		assert.False(t, handled)
	})
}

func TestRenderer_FollowsMainSync(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := start(t)
		h.open(t)

		target := domain.Some(domain.FromTime(time.Now()).Sub(decimal.NewFromInt(60)))
		require.NoError(t, h.main.Emit(domain.CommandSync, domain.SyncMessage{
			Origin: h.main.Origin(),
			Time:   &domain.Sync{Kind: domain.SyncRestore, Value: target, Domain: &domain.Unbounded},
		}))
		time.Sleep(time.Second)

		f, ok := h.rec.Last()
		require.True(t, ok)
		require.True(t, f.Time.Valid)
		assert.True(t, target.Decimal.Equal(f.Time.Decimal))
		assert.Empty(t, h.received(), "replayed transitions are not echoed back")
	})
}

func TestRenderer_DropsOwnSyncEcho(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := start(t)
		h.open(t)

		var handled bool
		require.NoError(t, h.main.Call(t.Context(), domain.CommandPointer, domain.Pointer{Kind: domain.PointerDragStart, X: 50}, &handled))
		synctest.Wait()
		syncs := h.received()
		require.NotEmpty(t, syncs)
		own := syncs[0].Origin

		target := domain.Some(domain.FromTime(time.Now()).Sub(decimal.NewFromInt(60)))
		require.NoError(t, h.main.Emit(domain.CommandSync, domain.SyncMessage{
			Origin: own,
			Time:   &domain.Sync{Kind: domain.SyncRestore, Value: target, Domain: &domain.Unbounded},
		}))
		time.Sleep(time.Second)

		f, ok := h.rec.Last()
		require.True(t, ok)
		assert.True(t, f.Editing, "the echoed restore is ignored")
		assert.False(t, f.Time.Valid && target.Decimal.Equal(f.Time.Decimal))
	})
}
