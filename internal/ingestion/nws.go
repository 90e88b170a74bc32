package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mr1hm/pulsemap/internal/models"
)

// NWS alerts (api.weather.gov) back both the tsunami and flood sources.

const nwsAlertURL = "https://api.weather.gov/alerts/"

type nwsResponse struct {
	Features []nwsFeature `json:"features"`
}

type nwsFeature struct {
	ID         string           `json:"id"`
	Geometry   *geoJSONGeometry `json:"geometry"`
	Properties nwsProperties    `json:"properties"`
}

type nwsProperties struct {
	ID          string `json:"id"`
	Event       string `json:"event"`
	Headline    string `json:"headline"`
	Description string `json:"description"`
	Instruction string `json:"instruction"`
	AreaDesc    string `json:"areaDesc"`
	Onset       string `json:"onset"`
	Sent        string `json:"sent"`
	Urgency     string `json:"urgency"`
	Certainty   string `json:"certainty"`
}

type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type position []float64

// alertShape is the marker position of an alert plus the ring it came from.
type alertShape struct {
	Type string
	Lon  float64
	Lat  float64
	Ring []position
}

var errUnsupportedGeometry = errors.New("unsupported geometry")

// parseAlertGeometry picks the first point of a Point, the first point of the
// first ring of a Polygon, or of the first polygon of a MultiPolygon.
func parseAlertGeometry(g *geoJSONGeometry) (alertShape, error) {
	if g == nil || len(g.Coordinates) == 0 || string(g.Coordinates) == "null" {
		return alertShape{}, errors.New("missing geometry")
	}

	shape := alertShape{Type: g.Type}
	var first position
	switch g.Type {
	case "Point":
		if err := json.Unmarshal(g.Coordinates, &first); err != nil {
			return alertShape{}, fmt.Errorf("bad point: %w", err)
		}
	case "Polygon":
		var rings [][]position
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return alertShape{}, fmt.Errorf("bad polygon: %w", err)
		}
		if len(rings) == 0 || len(rings[0]) == 0 {
			return alertShape{}, errors.New("empty polygon")
		}
		shape.Ring = rings[0]
		first = rings[0][0]
	case "MultiPolygon":
		var polys [][][]position
		if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
			return alertShape{}, fmt.Errorf("bad multipolygon: %w", err)
		}
		if len(polys) == 0 || len(polys[0]) == 0 || len(polys[0][0]) == 0 {
			return alertShape{}, errors.New("empty multipolygon")
		}
		shape.Ring = polys[0][0]
		first = polys[0][0][0]
	default:
		return alertShape{}, errUnsupportedGeometry
	}

	if len(first) < 2 {
		return alertShape{}, errors.New("short position")
	}
	shape.Lon, shape.Lat = first[0], first[1]
	if !models.ValidCoordinates(shape.Lat, shape.Lon) {
		return alertShape{}, errors.New("coordinates out of range")
	}
	return shape, nil
}

// ringSpan returns latRange+lonRange of a ring in degrees.
func ringSpan(ring []position) float64 {
	minLat, maxLat := math.Inf(1), math.Inf(-1)
	minLon, maxLon := math.Inf(1), math.Inf(-1)
	for _, p := range ring {
		if len(p) < 2 {
			continue
		}
		minLon, maxLon = math.Min(minLon, p[0]), math.Max(maxLon, p[0])
		minLat, maxLat = math.Min(minLat, p[1]), math.Max(maxLat, p[1])
	}
	if math.IsInf(minLat, 1) {
		return 0
	}
	return (maxLat - minLat) + (maxLon - minLon)
}

// alertID prefers the properties id and falls back to the feature id.
func (f nwsFeature) alertID() string {
	if f.Properties.ID != "" {
		return f.Properties.ID
	}
	return f.ID
}

// effective returns onset, or sent when onset is absent, as the raw string
// and the parsed time.
func (p nwsProperties) effective() (string, time.Time, error) {
	raw := p.Onset
	if raw == "" {
		raw = p.Sent
	}
	if raw == "" {
		return "", time.Time{}, errors.New("missing onset and sent")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("bad timestamp %q", raw)
	}
	return raw, t, nil
}

func (p nwsProperties) title() string {
	if p.Headline == "" {
		return p.Event
	}
	return p.Event + ": " + p.Headline
}
