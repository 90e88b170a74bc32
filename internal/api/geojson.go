package api

import (
	"github.com/mr1hm/pulsemap/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func toGeoJSON(events []models.Event) FeatureCollection {
	features := make([]Feature, 0, len(events))

	for _, e := range events {
		coords := []float64{e.Longitude, e.Latitude}
		if e.Depth != nil {
			coords = append(coords, *e.Depth)
		}

		props := map[string]any{
			"id":           e.ID,
			"externalId":   e.ExternalID,
			"type":         e.Type.String(),
			"title":        e.Title,
			"description":  e.Description,
			"location":     e.Location,
			"magnitude":    e.Severity.Value,
			"severityKind": string(e.Severity.Kind),
			"time":         e.TimeMillis(),
			"url":          e.URL,
		}
		if label := e.Severity.Label(); label != "" {
			props["severityLabel"] = label
		}
		if e.AffectedRadiusKm != nil {
			props["affectedRadiusKm"] = *e.AffectedRadiusKm
		}

		features = append(features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: coords,
			},
			Properties: props,
		})
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
