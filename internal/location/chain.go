package location

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// errSkipped marks a step that did not apply, such as a tier whose
// provider is not configured.
var errSkipped = eris.New("location: step skipped")

// step is one tier of a fallback chain.
type step struct {
	name string
	run  func(ctx context.Context) (UserLocation, error)
}

// runChain tries steps in order and returns the first success. The last
// step of every chain must not fail; if it does the zero location and the
// last error are returned.
func runChain(ctx context.Context, chain string, steps []step) (UserLocation, error) {
	var lastErr error
	for _, s := range steps {
		loc, err := s.run(ctx)
		if err == nil {
			if loc.Source == "" {
				loc.Source = s.name
			}
			return loc, nil
		}
		lastErr = err
		zap.L().Debug("location: tier failed, trying next",
			zap.String("chain", chain),
			zap.String("tier", s.name),
			zap.Error(err),
		)
	}
	return UserLocation{}, eris.Wrapf(lastErr, "location: %s chain exhausted", chain)
}
