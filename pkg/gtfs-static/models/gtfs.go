package models

import (
	"strconv"

	"github.com/paulmach/orb"
)

// TransferTypeMinTime is the GTFS transfer_type meaning the transfer
// requires a minimum amount of time between arrival and departure.
const TransferTypeMinTime = 2

// Stop is a single row of stops.txt. Only stops with LocationType 0 take
// part in transfer generation.
type Stop struct {
	StopID       string
	Location     orb.Point // lon, lat
	LocationType int
}

func NewStop(id string, lat, lon float64, locationType int) Stop {
	return Stop{
		StopID:       id,
		Location:     orb.Point{lon, lat},
		LocationType: locationType,
	}
}

// IsBoardingPoint reports whether the stop is a platform (location_type 0
// or absent) rather than a station, entrance or generic node.
func (s Stop) IsBoardingPoint() bool {
	return s.LocationType == 0
}

type Transfer struct {
	FromStopID      string
	ToStopID        string
	TransferType    int
	MinTransferTime int
}

// TransfersHeader is the column order written to transfers.txt
var TransfersHeader = []string{"from_stop_id", "to_stop_id", "transfer_type", "min_transfer_time"}

// Record returns the transfer as a transfers.txt row in TransfersHeader order.
func (t Transfer) Record() []string {
	return []string{
		t.FromStopID,
		t.ToStopID,
		strconv.Itoa(t.TransferType),
		strconv.Itoa(t.MinTransferTime),
	}
}
