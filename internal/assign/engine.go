// Package assign runs the pathfinding engine over a built model.
//
// The engine itself is a collaborator behind an interface: production runs
// launch an external worker command once per configured worker, while tests
// plug in whatever they need through EngineFunc.
package assign

import (
	"context"

	"github.com/bricegnichols/fast-trips/internal/model"
)

// Engine computes pathsets for a model's demand. Implementations leave one
// pathset file per worker process in outputDir and must not touch the
// canonical pathset file.
type Engine interface {
	Run(ctx context.Context, outputDir string, m *model.Model) error
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, outputDir string, m *model.Model) error

func (f EngineFunc) Run(ctx context.Context, outputDir string, m *model.Model) error {
	return f(ctx, outputDir, m)
}
