package transfers

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stops2transfers/internal/common/logger"
	"github.com/stops2transfers/internal/geo"
	"github.com/stops2transfers/pkg/gtfs-static/models"
)

// lonOffset returns the longitude delta, in degrees, that puts two points on
// the equator meters apart.
func lonOffset(meters float64) float64 {
	return meters / geo.EarthRadiusMeters * 180 / math.Pi
}

func collect(t *testing.T, opts Options, stops []models.Stop) []models.Transfer {
	t.Helper()
	g, err := New(opts, logger.Nop())
	require.NoError(t, err)

	var got []models.Transfer
	n, err := g.Generate(stops, func(tr models.Transfer) error {
		got = append(got, tr)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, len(got), n)
	return got
}

func TestNew_RejectsWalkingSpeed(t *testing.T) {
	for _, speed := range []float64{0, -1, math.NaN()} {
		_, err := New(Options{MaxDistance: 500, WalkingSpeed: speed}, logger.Nop())
		assert.True(t, errors.Is(err, ErrInvalidWalkingSpeed), "speed %v", speed)
	}
}

func TestGenerate_IdenticalCoordinates(t *testing.T) {
	stops := []models.Stop{
		models.NewStop("A", 48.85, 2.35, 0),
		models.NewStop("B", 48.85, 2.35, 0),
	}

	got := collect(t, Options{MaxDistance: 500, WalkingSpeed: 1.0, TransferTime: 10}, stops)

	want := []models.Transfer{
		{FromStopID: "A", ToStopID: "A", TransferType: 2, MinTransferTime: 10},
		{FromStopID: "A", ToStopID: "B", TransferType: 2, MinTransferTime: 10},
		{FromStopID: "B", ToStopID: "A", TransferType: 2, MinTransferTime: 10},
		{FromStopID: "B", ToStopID: "B", TransferType: 2, MinTransferTime: 10},
	}
	assert.Equal(t, want, got)
}

func TestGenerate_FarApartKeepsOnlySelfPairs(t *testing.T) {
	stops := []models.Stop{
		models.NewStop("A", 0, 0, 0),
		models.NewStop("B", 0, lonOffset(1000), 0),
	}

	got := collect(t, Options{MaxDistance: 500, WalkingSpeed: 0.785}, stops)

	want := []models.Transfer{
		{FromStopID: "A", ToStopID: "A", TransferType: 2, MinTransferTime: 0},
		{FromStopID: "B", ToStopID: "B", TransferType: 2, MinTransferTime: 0},
	}
	assert.Equal(t, want, got)
}

func TestGenerate_WalkingTime(t *testing.T) {
	stops := []models.Stop{
		models.NewStop("A", 0, 0, 0),
		models.NewStop("B", 0, lonOffset(300), 0),
	}

	got := collect(t, Options{MaxDistance: 500, WalkingSpeed: 0.785, TransferTime: 30}, stops)
	require.Len(t, got, 4)

	distance := geo.Distance(stops[0].Location, stops[1].Location)
	want := int(math.Floor(distance/0.785)) + 30
	assert.Equal(t, want, got[1].MinTransferTime)
	assert.Equal(t, want, got[2].MinTransferTime)
	assert.Equal(t, 30, got[0].MinTransferTime)
	assert.Equal(t, 30, got[3].MinTransferTime)
}

func TestGenerate_CountMatchesPairsWithinDistance(t *testing.T) {
	var stops []models.Stop
	for i, meters := range []float64{0, 120, 260, 480, 900, 1500} {
		stops = append(stops, models.NewStop(string(rune('A'+i)), 0, lonOffset(meters), 0))
	}
	opts := Options{MaxDistance: 400, WalkingSpeed: 1.2}

	want := 0
	for _, a := range stops {
		for _, b := range stops {
			if geo.Distance(a.Location, b.Location) <= opts.MaxDistance {
				want++
			}
		}
	}

	got := collect(t, opts, stops)
	assert.Len(t, got, want)
	for _, tr := range got {
		assert.LessOrEqual(t, tr.MinTransferTime, int(math.Floor(opts.MaxDistance/opts.WalkingSpeed)))
	}
}

func TestGenerate_SingleStop(t *testing.T) {
	got := collect(t, Options{MaxDistance: 0, WalkingSpeed: 1, TransferTime: 42},
		[]models.Stop{models.NewStop("only", 10, 10, 0)})

	assert.Equal(t, []models.Transfer{
		{FromStopID: "only", ToStopID: "only", TransferType: 2, MinTransferTime: 42},
	}, got)
}

func TestGenerate_Empty(t *testing.T) {
	got := collect(t, Options{MaxDistance: 500, WalkingSpeed: 1}, nil)
	assert.Empty(t, got)
}

func TestGenerate_NegativeMaxDistance(t *testing.T) {
	got := collect(t, Options{MaxDistance: -1, WalkingSpeed: 1},
		[]models.Stop{models.NewStop("A", 0, 0, 0)})
	assert.Empty(t, got)
}

func TestGenerate_EmitError(t *testing.T) {
	g, err := New(Options{MaxDistance: 500, WalkingSpeed: 1}, logger.Nop())
	require.NoError(t, err)

	boom := errors.New("disk full")
	stops := []models.Stop{models.NewStop("A", 0, 0, 0), models.NewStop("B", 0, 0, 0)}
	n, err := g.Generate(stops, func(models.Transfer) error { return boom })

	assert.Equal(t, 0, n)
	assert.True(t, errors.Is(err, boom))
}

func TestMinTransferTime(t *testing.T) {
	tests := []struct {
		distance, speed float64
		padding         uint32
		want            int
	}{
		{0, 0.785, 0, 0},
		{0, 1, 10, 10},
		{100, 1, 0, 100},
		{100, 0.785, 0, 127},
		{99.9, 1, 5, 104},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MinTransferTime(tt.distance, tt.speed, tt.padding),
			"distance=%v speed=%v padding=%v", tt.distance, tt.speed, tt.padding)
	}
}

func TestGenerate_IgnoresNonBoardingPoints(t *testing.T) {
	stops := []models.Stop{
		models.NewStop("P1", 0, 0, 0),
		models.NewStop("STATION", 0, 0, 1),
		models.NewStop("P2", 0, 0, 0),
		models.NewStop("ENTRANCE", 0, 0, 2),
	}

	got := collect(t, Options{MaxDistance: 500, WalkingSpeed: 1}, stops)

	require.Len(t, got, 4)
	for _, tr := range got {
		assert.Contains(t, []string{"P1", "P2"}, tr.FromStopID)
		assert.Contains(t, []string{"P1", "P2"}, tr.ToStopID)
	}
}

func TestGenerate_NaNMaxDistance(t *testing.T) {
	stops := []models.Stop{
		models.NewStop("A", 0, 0, 0),
		models.NewStop("B", 10, 10, 0),
	}

	got := collect(t, Options{MaxDistance: math.NaN(), WalkingSpeed: 1}, stops)
	assert.Empty(t, got)
}
