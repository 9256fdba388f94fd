package tui_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/timescope/internal/adapters/tui"
	"go.trai.ch/timescope/internal/renderer"
)

func TestRenderer_Lifecycle(t *testing.T) {
	model := tui.NewModel(context.Background(), nil).WithDisableTick()
	r := tui.NewRenderer(
		model,
		tea.WithInput(strings.NewReader("")),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
		tea.WithoutRenderer(),
	)

	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Stop())
	require.NoError(t, r.Wait())
}

func TestRenderer_DrawKeepsLatestFrame(t *testing.T) {
	model := tui.NewModel(context.Background(), nil).WithDisableTick()
	r := tui.NewRenderer(
		model,
		tea.WithInput(strings.NewReader("")),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
		tea.WithoutRenderer(),
	)
	sent := make(chan tea.Msg, 4)
	r.SetSend(func(msg tea.Msg) { sent <- msg })

	for seq := uint64(1); seq <= 3; seq++ {
		r.Draw(renderer.Frame{Seq: seq})
	}
	require.NoError(t, r.Start(context.Background()))

	select {
	case msg := <-sent:
		frame, ok := msg.(tui.MsgFrame)
		require.True(t, ok)
		assert.Equal(t, uint64(3), frame.Frame.Seq)
	case <-time.After(time.Second):
		t.Fatal("no frame was sent")
	}

	require.NoError(t, r.Stop())
	require.NoError(t, r.Wait())
	assert.Empty(t, sent, "superseded frames are dropped")
}
