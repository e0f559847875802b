// Package export writes ranked station lists in formats other tools read.
package export

import (
	"fmt"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/rubiojr/evcharger/pkg/station"
)

const (
	gpxVersion = "1.1"
	creator    = "evcharger"

	userWaypointName = "You"
	userWaypointType = "user"
)

// GPX renders the ranked stations as waypoints, in ranking order, followed by
// a waypoint for the user position.
func GPX(ranked []station.Ranked, user station.Position) ([]byte, error) {
	doc := &gpx.GPX{
		Version:     gpxVersion,
		Creator:     creator,
		Name:        "EV charging stations",
		Description: fmt.Sprintf("Stations ranked from %s", user),
	}

	for _, s := range ranked {
		doc.Waypoints = append(doc.Waypoints, gpx.GPXPoint{
			Point: gpx.Point{
				Latitude:  s.Position.Lat,
				Longitude: s.Position.Lng,
			},
			Name:        s.Name,
			Type:        fmt.Sprintf("P%d", s.Priority),
			Description: describe(s),
			Comment:     s.Address,
		})
	}

	doc.Waypoints = append(doc.Waypoints, gpx.GPXPoint{
		Point: gpx.Point{
			Latitude:  user.Lat,
			Longitude: user.Lng,
		},
		Name: userWaypointName,
		Type: userWaypointType,
	})

	data, err := doc.ToXml(gpx.ToXmlParams{Version: gpxVersion, Indent: true})
	if err != nil {
		return nil, fmt.Errorf("error encoding GPX: %w", err)
	}
	return data, nil
}

func describe(s station.Ranked) string {
	return fmt.Sprintf("%d km, %d/%d slots available, %s, ₹%.2f/kWh",
		s.DistanceKm, s.AvailableSlots, s.TotalSlots, s.PrimaryConnector(), s.PricePerKwh)
}
