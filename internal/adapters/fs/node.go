package fs

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
)

const (
	// WalkerNodeID is the unique identifier for the walker Graft node.
	WalkerNodeID graft.ID = "adapter.fs.walker"
	// FinderNodeID is the unique identifier for the binary finder Graft node.
	FinderNodeID graft.ID = "adapter.fs.finder"
	// DigesterNodeID is the unique identifier for the digester Graft node.
	DigesterNodeID graft.ID = "adapter.fs.digester"
	// UnpackerNodeID is the unique identifier for the unpacker Graft node.
	UnpackerNodeID graft.ID = "adapter.fs.unpacker"
	// PlacerNodeID is the unique identifier for the placer Graft node.
	PlacerNodeID graft.ID = "adapter.fs.placer"
)

func init() {
	// Walker Node (Concrete implementation needed by Finder)
	graft.Register(graft.Node[*Walker]{
		ID:        WalkerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Walker, error) {
			return NewWalker(), nil
		},
	})

	graft.Register(graft.Node[ports.BinaryFinder]{
		ID:        FinderNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{WalkerNodeID},
		Run: func(ctx context.Context) (ports.BinaryFinder, error) {
			walker, err := graft.Dep[*Walker](ctx)
			if err != nil {
				return nil, err
			}
			return NewFinder(walker), nil
		},
	})

	graft.Register(graft.Node[ports.Digester]{
		ID:        DigesterNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Digester, error) {
			return NewDigester(), nil
		},
	})

	graft.Register(graft.Node[ports.Unpacker]{
		ID:        UnpackerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Unpacker, error) {
			return NewUnpacker(), nil
		},
	})

	graft.Register(graft.Node[ports.Placer]{
		ID:        PlacerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Placer, error) {
			return NewPlacer(domain.DefaultLockDir()), nil
		},
	})
}
