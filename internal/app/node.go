package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/timescope/internal/adapters/config"             //nolint:depguard // Wired in app layer
	"go.trai.ch/timescope/internal/adapters/fetch"              //nolint:depguard // Wired in app layer
	"go.trai.ch/timescope/internal/adapters/logger"             //nolint:depguard // Wired in app layer
	"go.trai.ch/timescope/internal/adapters/telemetry/progrock" //nolint:depguard // Wired in app layer
	"go.trai.ch/timescope/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			logger.NodeID,
			fetch.NodeID,
			progrock.NodeID,
		},
		Run: runAppNode,
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	fetcher, err := graft.Dep[ports.Fetcher](ctx)
	if err != nil {
		return nil, err
	}

	telemetry, err := graft.Dep[ports.Telemetry](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, log, fetcher, telemetry), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	app, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return &Components{
		App:    app,
		Logger: log,
	}, nil
}
