package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/mr1hm/pulsemap/internal/models"
)

const volcanoPageURL = "https://volcano.si.edu/volcano.cfm?vn="

type volcanoResponse struct {
	Features []volcanoFeature `json:"features"`
}

type volcanoFeature struct {
	ID         string            `json:"id"`
	Properties volcanoProperties `json:"properties"`
	Geometry   *usgsGeometry     `json:"geometry"`
}

// Smithsonian GVP numeric fields arrive as JSON numbers or null.
type volcanoProperties struct {
	VolcanoNumber    *float64 `json:"Volcano_Number"`
	EruptionNumber   *float64 `json:"Eruption_Number"`
	VolcanoName      string   `json:"Volcano_Name"`
	StartYear        *float64 `json:"StartDateYear"`
	StartMonth       *float64 `json:"StartDateMonth"`
	StartDay         *float64 `json:"StartDateDay"`
	ExplosivityIndex *float64 `json:"ExplosivityIndexMax"`
	ActivityArea     string   `json:"ActivityArea"`
	ActivityType     string   `json:"Activity_Type"`
}

// VolcanoSource reads Holocene eruptions from the Smithsonian WFS service.
type VolcanoSource struct {
	client    *Client
	url       string
	cap       int
	sinceYear int
}

func NewVolcanoSource(client *Client, url string, cap, sinceYear int) *VolcanoSource {
	return &VolcanoSource{client: client, url: url, cap: cap, sinceYear: sinceYear}
}

func (s *VolcanoSource) Type() models.EventType {
	return models.EventTypeVolcano
}

func (s *VolcanoSource) Fetch(ctx context.Context) ([]models.Event, error) {
	var data volcanoResponse
	if err := s.client.getJSON(ctx, s.Type(), s.url, &data); err != nil {
		return nil, err
	}
	return s.normalize(data), nil
}

func (s *VolcanoSource) normalize(data volcanoResponse) []models.Event {
	events := make([]models.Event, 0, len(data.Features))
	for _, f := range data.Features {
		p := f.Properties
		vn, en := intOr(p.VolcanoNumber, 0), intOr(p.EruptionNumber, 0)
		record := fmt.Sprintf("%d/%d", vn, en)

		year := intOr(p.StartYear, 0)
		if year == 0 {
			s.client.skip(s.Type(), record, "missing start year")
			continue
		}
		if year < s.sinceYear {
			continue
		}
		if f.Geometry == nil || len(f.Geometry.Coordinates) < 2 {
			s.client.skip(s.Type(), record, "missing coordinates")
			continue
		}
		lon, lat := f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]
		if !models.ValidCoordinates(lat, lon) {
			s.client.skip(s.Type(), record, "coordinates out of range")
			continue
		}

		month, day := intOr(p.StartMonth, 1), intOr(p.StartDay, 1)
		if month < 1 || month > 12 {
			month = 1
		}
		if day < 1 || day > 31 {
			day = 1
		}

		description := p.ActivityType + " volcanic activity"
		if p.ActivityArea != "" {
			description = "Volcanic activity at " + p.ActivityArea
		}

		var vei float64
		if p.ExplosivityIndex != nil {
			vei = *p.ExplosivityIndex
		}

		events = append(events, models.Event{
			ExternalID:  fmt.Sprintf("volcano_%d_%d", vn, en),
			Type:        models.EventTypeVolcano,
			Title:       p.VolcanoName + " - Eruption Alert",
			Description: description,
			Location:    p.VolcanoName,
			Severity:    models.AlertLevel(models.TierFromExplosivity(vei)),
			Latitude:    lat,
			Longitude:   lon,
			Time:        time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC),
			URL:         fmt.Sprintf("%s%d", volcanoPageURL, vn),
		})
	}

	byTimeDesc(events)
	return truncate(events, s.cap)
}

// intOr treats null and zero as absent.
func intOr(f *float64, fallback int) int {
	if f == nil || *f == 0 {
		return fallback
	}
	return int(*f)
}
