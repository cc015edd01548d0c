package installer

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/keg/internal/adapters/fetch"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/keg/internal/adapters/fs"        //nolint:depguard // Wired in engine wiring
	"go.trai.ch/keg/internal/adapters/logger"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/keg/internal/adapters/shell"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/keg/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
)

// NodeID is the unique identifier for the installer Graft node.
const NodeID graft.ID = "engine.installer"

func init() {
	graft.Register(graft.Node[*Installer]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			fetch.NodeID,
			fs.DigesterNodeID,
			fs.UnpackerNodeID,
			fs.FinderNodeID,
			fs.PlacerNodeID,
			shell.NodeID,
			logger.NodeID,
			telemetry.TracerNodeID,
		},
		Run: runNode,
	})
}

func runNode(ctx context.Context) (*Installer, error) {
	fetcher, err := graft.Dep[ports.Fetcher](ctx)
	if err != nil {
		return nil, err
	}

	digester, err := graft.Dep[ports.Digester](ctx)
	if err != nil {
		return nil, err
	}

	unpacker, err := graft.Dep[ports.Unpacker](ctx)
	if err != nil {
		return nil, err
	}

	finder, err := graft.Dep[ports.BinaryFinder](ctx)
	if err != nil {
		return nil, err
	}

	placer, err := graft.Dep[ports.Placer](ctx)
	if err != nil {
		return nil, err
	}

	executor, err := graft.Dep[ports.Executor](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	tracer, err := graft.Dep[*telemetry.OTelTracer](ctx)
	if err != nil {
		return nil, err
	}

	return New(
		fetcher,
		digester,
		unpacker,
		finder,
		placer,
		executor,
		log,
		tracer,
		OptionsFromSettings(domain.DefaultSettings()),
	), nil
}
