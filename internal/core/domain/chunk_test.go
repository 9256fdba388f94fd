package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/timescope/internal/core/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ids(chunks []domain.ChunkDesc) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.ID
	}
	return out
}

func TestCreateChunkList_RunsOnePastTheEnd(t *testing.T) {
	chunks := domain.CreateChunkList(domain.NewRange(d("0"), d("100")), 0, 50)

	assert.Equal(t, []string{"z0:seq0", "z0:seq1", "z0:seq2", "z0:seq3"}, ids(chunks))
	assert.True(t, chunks[0].Range.Equal(domain.NewRange(d("0"), d("50"))))
	assert.True(t, chunks[1].Range.Equal(domain.NewRange(d("50"), d("100"))))
	assert.True(t, chunks[0].Resolution.Equal(d("1")))
}

func TestCreateChunkList_Deterministic(t *testing.T) {
	r := domain.NewRange(d("1700000000.125"), d("1700003600"))
	a := domain.CreateChunkList(r, 3, 256)
	b := domain.CreateChunkList(r, 3, 256)
	assert.Equal(t, ids(a), ids(b))
}

func TestCreateChunkList_TilesWithoutGaps(t *testing.T) {
	tests := []struct {
		name      string
		r         domain.Range
		zoom      float64
		chunkSize int
	}{
		{"aligned", domain.NewRange(d("0"), d("1000")), 0, 100},
		{"unaligned", domain.NewRange(d("13.7"), d("977.1")), 2, 64},
		{"negative", domain.NewRange(d("-500"), d("-20")), -1, 16},
		{"fractional zoom", domain.NewRange(d("0"), d("300")), 0.5, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := domain.CreateChunkList(tt.r, tt.zoom, tt.chunkSize)
			require.NotEmpty(t, chunks)
			for i := 1; i < len(chunks); i++ {
				assert.True(t, chunks[i-1].Range.End.Decimal.Equal(chunks[i].Range.Start.Decimal),
					"gap between %s and %s", chunks[i-1].ID, chunks[i].ID)
				assert.Equal(t, chunks[i-1].Seq+1, chunks[i].Seq)
			}
			assert.True(t, chunks[0].Range.Start.Decimal.LessThanOrEqual(tt.r.Start.Decimal))
			assert.True(t, chunks[len(chunks)-1].Range.End.Decimal.GreaterThan(tt.r.End.Decimal))
		})
	}
}

func TestCreateChunkList_NegativeSequence(t *testing.T) {
	chunks := domain.CreateChunkList(domain.NewRange(d("-75"), d("-10")), 0, 50)
	assert.Equal(t, []string{"z0:seq-2", "z0:seq-1", "z0:seq0"}, ids(chunks))
}

func TestCreateChunkList_SingleChunk(t *testing.T) {
	t.Run("open range", func(t *testing.T) {
		r := domain.Range{Start: domain.Int(10)}
		chunks := domain.CreateChunkList(r, 2, 256)
		require.Len(t, chunks, 1)
		assert.Equal(t, "z2", chunks[0].ID)
		assert.Equal(t, int64(0), chunks[0].Seq)
		assert.True(t, chunks[0].Range.Equal(r))
	})

	t.Run("zero chunk size", func(t *testing.T) {
		chunks := domain.CreateChunkList(domain.NewRange(d("0"), d("10")), 0, 0)
		require.Len(t, chunks, 1)
		assert.Equal(t, "z0", chunks[0].ID)
	})
}

func TestResolutionFor(t *testing.T) {
	assert.True(t, domain.ResolutionFor(0).Equal(d("1")))
	assert.True(t, domain.ResolutionFor(3).Equal(d("0.125")))
	assert.True(t, domain.ResolutionFor(-4).Equal(d("16")))
	assert.InDelta(t, 0.7071, domain.ResolutionFor(0.5).InexactFloat64(), 1e-4)
	assert.InDelta(t, 3.0, domain.ZoomFor(d("0.125")), 1e-9)
}

func TestConstrainZoom(t *testing.T) {
	assert.Equal(t, 2.0, domain.ConstrainZoom(2.7, nil))
	assert.Equal(t, -3.0, domain.ConstrainZoom(-2.1, nil))
	assert.Equal(t, 4.0, domain.ConstrainZoom(3.1, []float64{0, 4, 8}))
	assert.Equal(t, 0.0, domain.ConstrainZoom(-9, []float64{0}))
}

func TestChunkDesc_Expired(t *testing.T) {
	now := time.Unix(1000, 0)
	assert.False(t, domain.ChunkDesc{}.Expired(now))
	assert.True(t, domain.ChunkDesc{ExpiresAt: now}.Expired(now))
	assert.False(t, domain.ChunkDesc{ExpiresAt: now.Add(time.Second)}.Expired(now))
}
