package ingestion

import (
	"context"
	"math"
	"regexp"
	"sort"

	"github.com/mr1hm/pulsemap/internal/models"
)

// Affected radius defaults per geometry, in km.
const (
	pointRadiusKm        = 15.0
	polygonRadiusKm      = 25.0
	multiPolygonRadiusKm = 50.0
	maxPolygonRadiusKm   = 100.0
	kmPerDegree          = 55.0 // rough, applied to latRange+lonRange

	urgencyBoost   = 0.5
	certaintyBoost = 0.3
)

var waterLevelRe = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(feet|ft|foot|meters?|m)\s*(above|below)`)

// FloodSource reads active NWS flood alerts across all flood subtypes.
type FloodSource struct {
	client *Client
	url    string
	cap    int
}

func NewFloodSource(client *Client, url string, cap int) *FloodSource {
	return &FloodSource{client: client, url: url, cap: cap}
}

func (s *FloodSource) Type() models.EventType {
	return models.EventTypeFlood
}

func (s *FloodSource) Fetch(ctx context.Context) ([]models.Event, error) {
	var data nwsResponse
	if err := s.client.getJSON(ctx, s.Type(), s.url, &data); err != nil {
		return nil, err
	}
	return s.normalize(data), nil
}

func (s *FloodSource) normalize(data nwsResponse) []models.Event {
	events := make([]models.Event, 0, len(data.Features))
	for _, f := range data.Features {
		id := f.alertID()
		shape, err := parseAlertGeometry(f.Geometry)
		if err != nil {
			s.client.skip(s.Type(), id, err.Error())
			continue
		}
		onset, at, err := f.Properties.effective()
		if err != nil {
			s.client.skip(s.Type(), id, err.Error())
			continue
		}

		events = append(events, models.Event{
			ExternalID:       "flood_" + id + "_" + onset,
			Type:             models.EventTypeFlood,
			Title:            f.Properties.title(),
			Description:      floodDescription(f.Properties),
			Location:         f.Properties.AreaDesc,
			Severity:         floodSeverity(f.Properties),
			Latitude:         shape.Lat,
			Longitude:        shape.Lon,
			Time:             at,
			URL:              nwsAlertURL + id,
			AffectedRadiusKm: floatPtr(affectedRadius(shape)),
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Severity.Value != events[j].Severity.Value {
			return events[i].Severity.Value > events[j].Severity.Value
		}
		return events[i].Time.After(events[j].Time)
	})
	return truncate(events, s.cap)
}

func floodSeverity(p nwsProperties) models.Severity {
	var boost float64
	if p.Urgency == "Immediate" {
		boost += urgencyBoost
	}
	if p.Certainty == "Likely" {
		boost += certaintyBoost
	}
	return models.FloodSeverity(models.TierFromText(p.Event), boost)
}

func affectedRadius(shape alertShape) float64 {
	switch shape.Type {
	case "Point":
		return pointRadiusKm
	case "MultiPolygon":
		return multiPolygonRadiusKm
	}
	if len(shape.Ring) <= 2 {
		return polygonRadiusKm
	}
	r := ringSpan(shape.Ring) * kmPerDegree
	return models.Round1(math.Max(polygonRadiusKm, math.Min(maxPolygonRadiusKm, r)))
}

func floodDescription(p nwsProperties) string {
	d := p.Description
	if d == "" {
		d = p.Instruction
	}
	if d == "" {
		d = "Flood alert issued"
	}
	if m := waterLevelRe.FindStringSubmatch(p.Description); m != nil {
		d += " - Water Level: " + m[1] + " " + m[2] + " " + m[3] + " normal"
	}
	return d
}
