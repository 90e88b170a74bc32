package ingestion

import (
	"context"
	"time"

	"github.com/mr1hm/pulsemap/internal/models"
)

// MinEarthquakeMagnitude is exclusive: only quakes above it are kept.
const MinEarthquakeMagnitude = 2.0

type usgsResponse struct {
	Features []usgsFeature `json:"features"`
}

type usgsFeature struct {
	ID         string         `json:"id"`
	Properties usgsProperties `json:"properties"`
	Geometry   *usgsGeometry  `json:"geometry"`
}
type usgsProperties struct {
	Mag   *float64 `json:"mag"`
	Place string   `json:"place"`
	Time  int64    `json:"time"` // unix ms
	Title string   `json:"title"`
	URL   string   `json:"url"`
}
type usgsGeometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
}

// EarthquakeSource reads the USGS rolling 24h summary feed.
type EarthquakeSource struct {
	client *Client
	url    string
	cap    int
}

func NewEarthquakeSource(client *Client, url string, cap int) *EarthquakeSource {
	return &EarthquakeSource{client: client, url: url, cap: cap}
}

func (s *EarthquakeSource) Type() models.EventType {
	return models.EventTypeEarthquake
}

func (s *EarthquakeSource) Fetch(ctx context.Context) ([]models.Event, error) {
	var data usgsResponse
	if err := s.client.getJSON(ctx, s.Type(), s.url, &data); err != nil {
		return nil, err
	}
	return s.normalize(data), nil
}

func (s *EarthquakeSource) normalize(data usgsResponse) []models.Event {
	events := make([]models.Event, 0, len(data.Features))
	for _, f := range data.Features {
		mag := f.Properties.Mag
		if mag == nil || *mag <= MinEarthquakeMagnitude {
			continue
		}
		if f.Geometry == nil || len(f.Geometry.Coordinates) < 2 {
			s.client.skip(s.Type(), f.ID, "missing coordinates")
			continue
		}
		lon, lat := f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]
		if !models.ValidCoordinates(lat, lon) {
			s.client.skip(s.Type(), f.ID, "coordinates out of range")
			continue
		}
		if f.ID == "" || f.Properties.Time == 0 {
			s.client.skip(s.Type(), f.ID, "missing id or time")
			continue
		}

		e := models.Event{
			ExternalID: f.ID,
			Type:       models.EventTypeEarthquake,
			Title:      f.Properties.Title,
			Location:   f.Properties.Place,
			Severity:   models.Richter(*mag),
			Latitude:   lat,
			Longitude:  lon,
			Time:       time.UnixMilli(f.Properties.Time),
			URL:        f.Properties.URL,
		}
		if e.Title == "" {
			e.Title = f.Properties.Place
		}
		if len(f.Geometry.Coordinates) > 2 {
			e.Depth = floatPtr(f.Geometry.Coordinates[2])
		}
		events = append(events, e)
	}

	byTimeDesc(events)
	return truncate(events, s.cap)
}
