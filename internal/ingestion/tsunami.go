package ingestion

import (
	"context"

	"github.com/mr1hm/pulsemap/internal/models"
)

// TsunamiSource reads active NWS tsunami warnings, watches and advisories.
type TsunamiSource struct {
	client *Client
	url    string
	cap    int
}

func NewTsunamiSource(client *Client, url string, cap int) *TsunamiSource {
	return &TsunamiSource{client: client, url: url, cap: cap}
}

func (s *TsunamiSource) Type() models.EventType {
	return models.EventTypeTsunami
}

func (s *TsunamiSource) Fetch(ctx context.Context) ([]models.Event, error) {
	var data nwsResponse
	if err := s.client.getJSON(ctx, s.Type(), s.url, &data); err != nil {
		return nil, err
	}
	return s.normalize(data), nil
}

func (s *TsunamiSource) normalize(data nwsResponse) []models.Event {
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

		description := f.Properties.Description
		if description == "" {
			description = f.Properties.Instruction
		}

		events = append(events, models.Event{
			ExternalID:  "tsunami_" + id + "_" + onset,
			Type:        models.EventTypeTsunami,
			Title:       f.Properties.title(),
			Description: description,
			Location:    f.Properties.AreaDesc,
			Severity:    models.ThreatLevel(models.TierFromText(f.Properties.Event)),
			Latitude:    shape.Lat,
			Longitude:   shape.Lon,
			Time:        at,
			URL:         nwsAlertURL + id,
		})
	}

	byTimeDesc(events)
	return truncate(events, s.cap)
}
