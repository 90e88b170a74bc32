package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mr1hm/pulsemap/internal/models"
)

const (
	firmsURL = "https://firms.modaps.eosdis.nasa.gov/"

	defaultBrightness = 300.0 // kelvin
	defaultConfidence = 0.0
	minBrightness     = 300.0
	brightnessSpan    = 100.0
	brightnessWeight  = 0.7
	confidenceWeight  = 0.3
)

type fireRow struct {
	lat, lon   float64
	brightness float64
	confidence float64
	acqDate    string
	acqTime    string // HHMM
	at         time.Time
}

// WildfireSource reads the NASA FIRMS VIIRS 24h CSV export.
type WildfireSource struct {
	client *Client
	url    string
	cap    int
}

func NewWildfireSource(client *Client, url string, cap int) *WildfireSource {
	return &WildfireSource{client: client, url: url, cap: cap}
}

func (s *WildfireSource) Type() models.EventType {
	return models.EventTypeWildfire
}

func (s *WildfireSource) Fetch(ctx context.Context) ([]models.Event, error) {
	body, err := s.client.get(ctx, s.Type(), s.url, "text/csv")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	events, err := s.parse(body)
	if err != nil {
		return nil, &FetchError{Source: s.Type(), Err: err}
	}
	return events, nil
}

func (s *WildfireSource) parse(r io.Reader) ([]models.Event, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []models.Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	brightCol := "bright_ti4"
	if _, ok := cols[brightCol]; !ok {
		brightCol = "brightness"
	}

	var fires []fireRow
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				s.client.skip(s.Type(), strconv.Itoa(line), perr.Err.Error())
				continue
			}
			return nil, fmt.Errorf("error reading csv: %w", err)
		}
		if len(rec) < len(header) {
			s.client.skip(s.Type(), strconv.Itoa(line), "short row")
			continue
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		fire, reason := parseFireRow(field, brightCol)
		if reason != "" {
			s.client.skip(s.Type(), strconv.Itoa(line), reason)
			continue
		}
		fires = append(fires, fire)
	}

	sort.SliceStable(fires, func(i, j int) bool {
		a, b := fires[i], fires[j]
		if a.confidence != b.confidence {
			return a.confidence > b.confidence
		}
		if a.brightness != b.brightness {
			return a.brightness > b.brightness
		}
		if a.acqDate != b.acqDate {
			return a.acqDate > b.acqDate
		}
		return a.acqTime > b.acqTime
	})
	if s.cap > 0 && len(fires) > s.cap {
		fires = fires[:s.cap]
	}

	events := make([]models.Event, 0, len(fires))
	for _, f := range fires {
		events = append(events, fireEvent(f))
	}
	return events, nil
}

func parseFireRow(field func(string) string, brightCol string) (fireRow, string) {
	latRaw, lonRaw, brightRaw := field("latitude"), field("longitude"), field(brightCol)
	if latRaw == "" || lonRaw == "" {
		return fireRow{}, "missing coordinates"
	}
	if brightRaw == "" {
		return fireRow{}, "missing brightness"
	}
	lat, errLat := strconv.ParseFloat(latRaw, 64)
	lon, errLon := strconv.ParseFloat(lonRaw, 64)
	if errLat != nil || errLon != nil || !models.ValidCoordinates(lat, lon) {
		return fireRow{}, "invalid coordinates"
	}

	f := fireRow{
		lat:        lat,
		lon:        lon,
		brightness: parseFloatOr(brightRaw, defaultBrightness),
		confidence: parseFloatOr(field("confidence"), defaultConfidence),
		acqDate:    field("acq_date"),
		acqTime:    field("acq_time"),
	}
	if f.acqTime == "" {
		f.acqTime = "0000"
	}
	for len(f.acqTime) < 4 {
		f.acqTime = "0" + f.acqTime
	}

	at, err := time.ParseInLocation("2006-01-02 1504", f.acqDate+" "+f.acqTime, time.UTC)
	if err != nil {
		return fireRow{}, "invalid acquisition date"
	}
	f.at = at
	return f, ""
}

// parseFloatOr mirrors a "parse or default" read: unparsable and zero values
// fall back.
func parseFloatOr(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v == 0 || math.IsNaN(v) {
		return fallback
	}
	return v
}

// FireIntensity blends normalized brightness (300..400 K) and confidence
// (0..100) into a 0..1 score.
func FireIntensity(brightness, confidence float64) models.Severity {
	nb := math.Min(math.Max((brightness-minBrightness)/brightnessSpan, 0), 1)
	nc := math.Min(math.Max(confidence/100, 0), 1)
	return models.Intensity(brightnessWeight*nb + confidenceWeight*nc)
}

func fireEvent(f fireRow) models.Event {
	return models.Event{
		ExternalID:  "wildfire_" + formatNumber(f.lat) + "_" + formatNumber(f.lon) + "_" + f.acqDate,
		Type:        models.EventTypeWildfire,
		Title:       "Active Fire Detection",
		Description: fmt.Sprintf("Fire detected by satellite with %s%% confidence. Brightness: %sK", formatNumber(f.confidence), formatNumber(f.brightness)),
		Location:    fmt.Sprintf("%.3f, %.3f", f.lat, f.lon),
		Severity:    FireIntensity(f.brightness, f.confidence),
		Latitude:    f.lat,
		Longitude:   f.lon,
		Time:        f.at,
		URL:         firmsURL,
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
