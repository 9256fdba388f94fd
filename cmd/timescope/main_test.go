package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/timescope/internal/app"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func components(t *testing.T) (*app.Components, *mocks.MockConfigLoader, *mocks.MockLogger) {
	t.Helper()
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	logger := mocks.NewMockLogger(ctrl)
	a := app.New(loader, logger, mocks.NewMockFetcher(ctrl), mocks.NewMockTelemetry(ctrl))
	return &app.Components{App: a, Logger: logger}, loader, logger
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	c, _, _ := components(t)
	provider := func(context.Context) (*app.Components, func(), error) { return c, func() {}, nil }

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)
	assert.Equal(t, 0, exitCode)
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_ExecutionError verifies that run logs the failure and returns 1.
func TestRun_ExecutionError(t *testing.T) {
	c, loader, logger := components(t)
	loader.EXPECT().Load("broken.yaml").Return(nil, domain.ErrInvalidConfig)
	logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.Contains(t, err.Error(), domain.ErrInvalidConfig.Error())
	})

	cleaned := false
	provider := func(context.Context) (*app.Components, func(), error) {
		return c, func() { cleaned = true }, nil
	}

	exitCode := run(context.Background(), []string{"chunks", "api", "-c", "broken.yaml"}, new(bytes.Buffer), provider)
	assert.Equal(t, 1, exitCode)
	assert.True(t, cleaned)
}

// TestRun_AppliesOptions verifies that options reach the app before execution.
func TestRun_AppliesOptions(t *testing.T) {
	c, _, _ := components(t)
	provider := func(context.Context) (*app.Components, func(), error) { return c, func() {}, nil }

	var seen *app.App
	exitCode := run(context.Background(), []string{"version"}, new(bytes.Buffer), provider, func(a *app.App) { seen = a })
	assert.Equal(t, 0, exitCode)
	assert.Same(t, c.App, seen)
}
