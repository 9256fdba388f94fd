package app_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/timescope/internal/app"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/core/ports"
	"go.trai.ch/timescope/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func intPtr(n int) *int { return &n }

type nopVertex struct{}

func (nopVertex) Stdout() io.Writer           { return io.Discard }
func (nopVertex) Log(domain.LogLevel, string) {}
func (nopVertex) Complete(error)              {}
func (nopVertex) Cached()                     {}

func fileConfig() *domain.Config {
	return &domain.Config{
		State: domain.StateConfig{TimeRange: domain.DefaultTimeRange, ZoomRange: domain.Unbounded},
		Sources: map[string]domain.SourceConfig{
			"static": {Name: "static", Data: []map[string]any{
				{"time": 100, "value": 4},
				{"time": 110, "value": 8},
				{"time": 120, "value": 6},
				{"time": 200, "value": 50},
			}},
			"api": {Name: "api", URL: "https://metrics.example/{start}/{end}", ChunkSize: intPtr(10)},
			"flat": {Name: "flat", URL: "https://metrics.example/all.json"},
		},
		Series: map[string]domain.SeriesConfig{
			"cpu":  {Name: "cpu", Source: "static", Range: domain.DefaultDataRange},
			"flat": {Name: "flat", Source: "flat", Range: domain.DefaultDataRange},
			"net":  {Name: "net", Source: "api", Range: domain.DefaultDataRange},
		},
		Charts: []domain.ChartConfig{{Name: "cpu", Series: "cpu"}},
		Render: domain.DefaultRender,
	}
}

type fixture struct {
	loader    *mocks.MockConfigLoader
	logger    *mocks.MockLogger
	fetcher   *mocks.MockFetcher
	telemetry *mocks.MockTelemetry
	app       *app.App
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		loader:    mocks.NewMockConfigLoader(ctrl),
		logger:    mocks.NewMockLogger(ctrl),
		fetcher:   mocks.NewMockFetcher(ctrl),
		telemetry: mocks.NewMockTelemetry(ctrl),
	}
	f.app = app.New(f.loader, f.logger, f.fetcher, f.telemetry)
	return f
}

func TestApp_Chunks(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load("timescope.yaml").Return(fileConfig(), nil)

	chunks, err := f.app.Chunks(context.Background(), app.ChunksOptions{
		Config: "timescope.yaml",
		Source: "api",
		Window: app.Window{Start: "100", End: "150"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	first, last := chunks[0], chunks[len(chunks)-1]
	assert.True(t, first.Range.Start.Decimal.LessThanOrEqual(domain.Int(100).Decimal))
	assert.True(t, last.Range.End.Decimal.GreaterThanOrEqual(domain.Int(150).Decimal))
	for _, c := range chunks {
		assert.Equal(t, 10, int(c.Range.End.Decimal.Sub(c.Range.Start.Decimal).IntPart()))
	}
}

func TestApp_Chunks_StaticSourceIsOneTile(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(".").Return(fileConfig(), nil)

	chunks, err := f.app.Chunks(context.Background(), app.ChunksOptions{
		Config: ".",
		Source: "static",
		Window: app.Window{Start: "100", End: "150", Zoom: 3},
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "z0", chunks[0].ID)
}

func TestApp_Chunks_Errors(t *testing.T) {
	t.Run("unknown source", func(t *testing.T) {
		f := newFixture(t)
		f.loader.EXPECT().Load(".").Return(fileConfig(), nil)
		_, err := f.app.Chunks(context.Background(), app.ChunksOptions{Config: ".", Source: "nope"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), domain.ErrUnknownSource.Error())
	})

	t.Run("reversed window", func(t *testing.T) {
		f := newFixture(t)
		f.loader.EXPECT().Load(".").Return(fileConfig(), nil)
		_, err := f.app.Chunks(context.Background(), app.ChunksOptions{
			Config: ".",
			Source: "api",
			Window: app.Window{Start: "200", End: "100"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), domain.ErrInvalidDomain.Error())
	})

	t.Run("config", func(t *testing.T) {
		f := newFixture(t)
		f.loader.EXPECT().Load(".").Return(nil, errors.New("config load error"))
		_, err := f.app.Chunks(context.Background(), app.ChunksOptions{Config: ".", Source: "api"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load configuration")
	})
}

func TestApp_Load(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	vertex := mocks.NewMockVertex(ctrl)

	f.loader.EXPECT().Load(".").Return(fileConfig(), nil)
	f.telemetry.EXPECT().Record(gomock.Any(), "load static/z0").DoAndReturn(
		func(ctx context.Context, _ string) (context.Context, ports.Vertex) { return ctx, vertex },
	)
	vertex.EXPECT().Complete(nil)

	res, err := f.app.Load(context.Background(), app.LoadOptions{
		Config: ".",
		Series: "cpu",
		Window: app.Window{Start: "90", End: "130"},
	})
	require.NoError(t, err)
	require.Len(t, res.Chunks, 1)
	assert.Empty(t, res.Failed)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, int64(100), res.Rows[0].MinTime.Decimal.IntPart())
	assert.Equal(t, int64(8), res.Meta.PMax.Decimal.IntPart())
	assert.Equal(t, int64(0), res.Meta.Zero.Decimal.IntPart())
}

func TestApp_Load_AllTilesFail(t *testing.T) {
	f := newFixture(t)
	f.app = app.New(f.loader, f.logger, f.fetcher, nil)

	f.loader.EXPECT().Load(".").Return(fileConfig(), nil)
	f.fetcher.EXPECT().Fetch(gomock.Any(), "https://metrics.example/all.json").
		Return(nil, domain.ErrFetchFailed)

	_, err := f.app.Load(context.Background(), app.LoadOptions{
		Config: ".",
		Series: "flat",
		Window: app.Window{Start: "90", End: "130"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrFetchFailed.Error())
}

func TestApp_Load_PartialFailure(t *testing.T) {
	f := newFixture(t)
	f.app = app.New(f.loader, f.logger, f.fetcher, nil)

	f.loader.EXPECT().Load(".").Return(fileConfig(), nil)
	f.fetcher.EXPECT().Fetch(gomock.Any(), "https://metrics.example/100/110").
		Return([]map[string]any{{"time": 105, "value": 1}}, nil)
	f.fetcher.EXPECT().Fetch(gomock.Any(), "https://metrics.example/110/120").
		Return(nil, domain.ErrFetchFailed)
	f.fetcher.EXPECT().Fetch(gomock.Any(), "https://metrics.example/120/130").
		Return([]map[string]any{{"time": 125, "value": 3}}, nil)
	f.logger.EXPECT().Warn(gomock.Any()).Times(1)

	res, err := f.app.Load(context.Background(), app.LoadOptions{
		Config: ".",
		Series: "net",
		Window: app.Window{Start: "100", End: "115"},
	})
	require.NoError(t, err)
	require.Len(t, res.Chunks, 3)
	assert.Equal(t, "z0:seq10", res.Chunks[0].ID)
	require.Contains(t, res.Failed, "z0:seq11")
	assert.Contains(t, res.Failed["z0:seq11"].Error(), domain.ErrFetchFailed.Error())
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(105), res.Rows[0].MinTime.Decimal.IntPart())
}

func TestApp_Load_UnknownSeries(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(".").Return(fileConfig(), nil)

	_, err := f.app.Load(context.Background(), app.LoadOptions{Config: ".", Series: "mem"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrUnknownSeries.Error())
}

func TestApp_Load_DefaultWindowEndsNow(t *testing.T) {
	f := newFixture(t)
	f.app = app.New(f.loader, f.logger, f.fetcher, nil).
		WithClock(clockwork.NewFakeClockAt(domain.ToTime(domain.Int(125).Decimal)))
	f.loader.EXPECT().Load(".").Return(fileConfig(), nil)

	res, err := f.app.Load(context.Background(), app.LoadOptions{Config: ".", Series: "cpu"})
	require.NoError(t, err)
	assert.Equal(t, int64(125), res.Range.End.Decimal.IntPart())
	assert.Equal(t, int64(125-domain.DefaultRender.Width), res.Range.Start.Decimal.IntPart())
	assert.Len(t, res.Rows, 3)
}

func TestApp_View_QuitsOnKey(t *testing.T) {
	f := newFixture(t)
	f.app.WithDisableTick().WithTeaOptions(
		tea.WithInput(strings.NewReader("q")),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
		tea.WithoutRenderer(),
	)
	f.loader.EXPECT().Load(".").Return(fileConfig(), nil)
	f.telemetry.EXPECT().Record(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(
		func(ctx context.Context, _ string) (context.Context, ports.Vertex) { return ctx, nopVertex{} },
	)
	f.logger.EXPECT().Info(gomock.Any()).AnyTimes()
	f.logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	f.logger.EXPECT().Error(gomock.Any()).AnyTimes()

	require.NoError(t, f.app.View(context.Background(), app.ViewOptions{Config: "."}))
}

func TestApp_View_ConfigError(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(".").Return(nil, domain.ErrInvalidConfig)

	err := f.app.View(context.Background(), app.ViewOptions{Config: "."})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrInvalidConfig.Error())
}
