package transfers

import (
	"errors"
	"fmt"
	"math"

	"github.com/stops2transfers/internal/common/logger"
	"github.com/stops2transfers/internal/geo"
	"github.com/stops2transfers/pkg/gtfs-static/models"
)

var ErrInvalidWalkingSpeed = errors.New("walking speed must be greater than 0")

const progressEvery = 1000

type Options struct {
	MaxDistance  float64 // meters, inclusive
	WalkingSpeed float64 // meters per second
	TransferTime uint32  // seconds added to every walking time
}

type Generator struct {
	opts   Options
	logger logger.Logger
}

func New(opts Options, logger logger.Logger) (*Generator, error) {
	if !(opts.WalkingSpeed > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWalkingSpeed, opts.WalkingSpeed)
	}
	return &Generator{opts: opts, logger: logger}, nil
}

// Generate walks every ordered pair of boarding points, self-pairs included,
// and passes each pair within MaxDistance to emit in input order. It stops at
// the first emit error and returns the number of transfers emitted.
func (g *Generator) Generate(stops []models.Stop, emit func(models.Transfer) error) (int, error) {
	stops = boardingPoints(stops)
	count := 0
	for i, from := range stops {
		for _, to := range stops {
			distance := geo.Distance(from.Location, to.Location)
			if !(distance <= g.opts.MaxDistance) {
				continue
			}
			transfer := models.Transfer{
				FromStopID:      from.StopID,
				ToStopID:        to.StopID,
				TransferType:    models.TransferTypeMinTime,
				MinTransferTime: MinTransferTime(distance, g.opts.WalkingSpeed, g.opts.TransferTime),
			}
			if err := emit(transfer); err != nil {
				return count, fmt.Errorf("emitting transfer %s -> %s: %w", from.StopID, to.StopID, err)
			}
			count++
		}

		if (i+1)%progressEvery == 0 {
			g.logger.Debug("Progress", "stops", i+1, "of", len(stops), "transfers", count)
		}
	}

	g.logger.Info("Transfers generated",
		"stops", len(stops),
		"pairs", len(stops)*len(stops),
		"transfers", count,
	)
	return count, nil
}

// boardingPoints drops stations, entrances and nodes. It returns stops
// unchanged when there is nothing to drop.
func boardingPoints(stops []models.Stop) []models.Stop {
	for i, s := range stops {
		if s.IsBoardingPoint() {
			continue
		}
		kept := make([]models.Stop, i, len(stops))
		copy(kept, stops[:i])
		for _, s := range stops[i+1:] {
			if s.IsBoardingPoint() {
				kept = append(kept, s)
			}
		}
		return kept
	}
	return stops
}

// MinTransferTime is the whole seconds needed to walk distance at speed,
// plus padding.
func MinTransferTime(distance, speed float64, padding uint32) int {
	return int(math.Floor(distance/speed)) + int(padding)
}
