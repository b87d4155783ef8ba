// Package engine pairs whole-cell regions with nucleus regions.
//
// Pairing is greedy, largest area first: the largest pending region becomes a
// container and claims the first pending region, in identifier order, whose
// centroid lies inside its polygon. There is no backtracking, so a nucleus
// inside two cells goes to the larger cell, not the tighter one.
package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/piwi3910/RoiPair/internal/model"
	"go.uber.org/zap"
)

// ErrDuplicateID is returned when two regions share an identifier.
var ErrDuplicateID = errors.New("duplicate region identifier")

// Engine runs the pairing algorithm.
type Engine struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log}
}

// Pair assigns container and contained roles to regions. Pairs are returned
// in formation order, so container areas never increase along the slice.
// Equal areas are resolved by identifier order. Containers that find no
// centroid inside them are returned in Unpaired; they are not an error.
func (e *Engine) Pair(regions []model.Region) (model.PairingResult, error) {
	ordered := make([]model.Region, len(regions))
	copy(ordered, regions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ID < ordered[j].ID
	})
	for i := 1; i < len(ordered); i++ {
		if ordered[i].ID == ordered[i-1].ID {
			return model.PairingResult{}, fmt.Errorf("%w: %s", ErrDuplicateID, ordered[i].ID)
		}
	}

	result := model.PairingResult{
		Pairs:    []model.Pair{},
		Unpaired: []model.Region{},
	}

	pending := newPendingSet(ordered)
	for pending.Len() > 0 {
		container := ordered[pending.popLargest()]

		slot, ok := pending.popFirstInside(container.Outline)
		if !ok {
			e.log.Debug("no centroid inside region",
				zap.String("region", container.ID),
				zap.Float64("area", container.Area))
			result.Unpaired = append(result.Unpaired, container)
			continue
		}

		contained := ordered[slot]
		e.log.Debug("paired regions",
			zap.Int("index", len(result.Pairs)+1),
			zap.String("container", container.ID),
			zap.String("contained", contained.ID))
		result.Pairs = append(result.Pairs, model.Pair{Container: container, Contained: contained})
	}

	return result, nil
}
