package datacache_test

import (
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/engine/datacache"
	"go.trai.ch/timescope/internal/engine/frame"
)

func newSeries() (*datacache.SeriesCache, fakeClock, *frame.Manual) {
	clock := clockwork.NewFakeClock()
	frames := frame.NewManual()
	s := datacache.NewSeries(datacache.Options{Name: "cpu", Clock: clock, Frames: frames})
	return s, clock, frames
}

func TestSeriesCache_FirstMetaAppliesInstantly(t *testing.T) {
	s, _, frames := newSeries()

	var metas []domain.SeriesMeta
	s.MetaChanged.On(func(m domain.SeriesMeta) { metas = append(metas, m) })

	s.UpdateMeta(domain.SeriesMeta{PMin: domain.Int(2), PMax: domain.Int(10)})
	assert.Equal(t, 0, frames.Pending())

	scale := s.ScaleY(false)
	assert.InDelta(t, 1, scale(domain.Int(10)), 1e-9)
	assert.InDelta(t, 0, scale(domain.Int(2)), 1e-9)
	assert.InDelta(t, 0, scale(domain.Null), 1e-9)
	assert.Equal(t, 1, s.Floating())
	require.Len(t, metas, 1)
}

func TestSeriesCache_RescaleAnimates(t *testing.T) {
	s, clock, frames := newSeries()

	s.UpdateMeta(domain.SeriesMeta{PMin: domain.Int(2), PMax: domain.Int(10)})
	s.UpdateMeta(domain.SeriesMeta{PMin: domain.Int(2), PMax: domain.Int(18)})

	assert.InDelta(t, 1, s.ScaleY(true)(domain.Int(18)), 1e-9, "the candidate scale jumps to the target")
	assert.InDelta(t, 2, s.ScaleY(false)(domain.Int(18)), 1e-9, "the current scale has not moved yet")

	clock.Advance(100 * time.Millisecond)
	frames.Step()
	mid := s.ScaleY(false)(domain.Int(18))
	assert.Greater(t, mid, 1.0)
	assert.Less(t, mid, 2.0)

	for i := 0; frames.Pending() > 0; i++ {
		require.Less(t, i, 100)
		clock.Advance(16 * time.Millisecond)
		frames.Step()
	}
	assert.InDelta(t, 1, s.ScaleY(false)(domain.Int(18)), 1e-9)
}

func TestSeriesCache_MixedSignsAnchorAtZero(t *testing.T) {
	s, _, _ := newSeries()

	s.UpdateMeta(domain.SeriesMeta{
		PMin: domain.Int(1), PMax: domain.Int(10),
		NMin: domain.Int(-20), NMax: domain.Int(-1),
	})

	scale := s.ScaleY(false)
	assert.InDelta(t, -1, scale(domain.Int(-20)), 1e-9)
	assert.InDelta(t, 0.5, scale(domain.Int(10)), 1e-9)
	assert.Equal(t, 0, s.Floating())
}

func TestSeriesCache_LogScale(t *testing.T) {
	s, _, _ := newSeries()

	s.UpdateMeta(domain.SeriesMeta{PMin: domain.Int(1), PMax: domain.Int(100), Scale: domain.ScaleLog})

	scale := s.ScaleY(false)
	assert.InDelta(t, 0.5, scale(domain.Int(10)), 1e-9)
	assert.True(t, math.IsNaN(scale(domain.Int(-1))))
}

func TestSeriesCache_EmptyMetaIsIgnored(t *testing.T) {
	s, _, _ := newSeries()
	revision := s.Revision()

	s.UpdateMeta(domain.SeriesMeta{Color: "red"})

	assert.Equal(t, revision, s.Revision())
	assert.InDelta(t, 0.5, s.ScaleY(false)(domain.Int(3)), 1e-9)
	assert.InDelta(t, -0.5, s.ScaleY(false)(domain.Int(-3)), 1e-9)
}

func TestCreateScaleY(t *testing.T) {
	meta := datacache.ScaleMeta{Min: domain.Int(-5), Max: domain.Int(15), Amp: domain.Int(20)}

	linear := datacache.CreateScaleY(false, false, meta)
	require.NotNil(t, linear)
	v, ok := linear(domain.Int(5))
	assert.True(t, ok)
	assert.InDelta(t, 0.5, v, 1e-9)

	symmetric := datacache.CreateScaleY(true, false, meta)
	v, _ = symmetric(domain.Int(-10))
	assert.InDelta(t, -0.5, v, 1e-9)

	_, ok = linear(domain.Null)
	assert.False(t, ok)

	logScale := datacache.CreateScaleY(false, true, datacache.ScaleMeta{Min: domain.Int(1), Max: domain.Int(1000)})
	require.NotNil(t, logScale)
	v, ok = logScale(domain.Int(10))
	assert.True(t, ok)
	assert.InDelta(t, 1.0/3, v, 1e-9)
	_, ok = logScale(domain.Int(0))
	assert.False(t, ok)

	assert.Nil(t, datacache.CreateScaleY(false, false, datacache.ScaleMeta{Min: domain.Int(3), Max: domain.Int(3), Amp: domain.Int(3)}))
	assert.Nil(t, datacache.CreateScaleY(false, true, datacache.ScaleMeta{Min: domain.Int(-1), Max: domain.Int(10)}))
}
