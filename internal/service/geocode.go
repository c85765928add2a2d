package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ZAX3000/mailtrace/internal/config"
	"github.com/ZAX3000/mailtrace/internal/domain"
	"github.com/ZAX3000/mailtrace/internal/logger"
	"github.com/ZAX3000/mailtrace/internal/repository"
)

// GeocodeService resolves addresses to coordinates through a Mapbox-style
// forward geocoding endpoint and persists the points for the map view.
type GeocodeService struct {
	client *resty.Client
	points *repository.GeoPointRepository
	cfg    config.GeocodeConfig
	logger *logger.Logger
}

// NewGeocodeService creates a geocode service. The service is inert when the
// configuration disables geocoding or no token is set.
func NewGeocodeService(points *repository.GeoPointRepository, cfg config.GeocodeConfig, log *logger.Logger) *GeocodeService {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &GeocodeService{
		client: client,
		points: points,
		cfg:    cfg,
		logger: log,
	}
}

// Enabled reports whether the service will perform lookups.
func (s *GeocodeService) Enabled() bool {
	return s.cfg.Enabled && s.cfg.Token != "" && s.cfg.BaseURL != ""
}

type geocodeResponse struct {
	Features []struct {
		Center    [2]float64 `json:"center"`
		PlaceName string     `json:"place_name"`
	} `json:"features"`
}

// Forward resolves a single address to (lat, lon). Returns an error when the
// provider has no candidate for the address.
func (s *GeocodeService) Forward(ctx context.Context, address string) (lat, lon float64, err error) {
	endpoint := fmt.Sprintf("%s/%s.json", s.cfg.BaseURL, url.PathEscape(address))

	var result geocodeResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"access_token": s.cfg.Token,
			"limit":        "1",
			"country":      "us",
		}).
		SetResult(&result).
		Get(endpoint)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode request failed: %w", err)
	}
	if resp.IsError() {
		return 0, 0, fmt.Errorf("geocode request failed: status %d", resp.StatusCode())
	}
	if len(result.Features) == 0 {
		return 0, 0, fmt.Errorf("no geocode result for %q", address)
	}
	center := result.Features[0].Center
	// Mapbox centers are [lon, lat].
	return center[1], center[0], nil
}

// GeocodeRun resolves up to MaxPoints matched addresses of a run and stores
// the successful lookups. Individual lookup failures are logged and skipped.
func (s *GeocodeService) GeocodeRun(ctx context.Context, runID string, matches []domain.Match) error {
	if !s.Enabled() {
		return nil
	}
	log := s.logger
	if ctx != nil {
		log = logger.FromContext(ctx)
	}

	limit := s.cfg.MaxPoints
	if limit <= 0 || limit > len(matches) {
		limit = len(matches)
	}

	points := make([]domain.GeoPoint, 0, limit)
	for _, m := range matches[:limit] {
		if err := ctx.Err(); err != nil {
			return err
		}
		lat, lon, err := s.Forward(ctx, m.MatchedMailAddress)
		if err != nil {
			log.WithError(err).WithField("crm_id", m.CRMID).Debug("Skipping geocode failure")
			continue
		}
		points = append(points, domain.GeoPoint{
			RunID:     runID,
			Kind:      domain.GeoPointMatch,
			Label:     m.CRMID,
			Address:   m.MatchedMailAddress,
			Lat:       lat,
			Lon:       lon,
			EventDate: m.CRMJobDate,
		})
	}
	if len(points) == 0 {
		return nil
	}
	if err := s.points.BulkInsert(ctx, points); err != nil {
		return fmt.Errorf("failed to store geo points: %w", err)
	}
	log.WithField(logger.FieldCount, len(points)).Info("Geocoded run matches")
	return nil
}

// RunPoints returns the stored points of a run for the map endpoint.
func (s *GeocodeService) RunPoints(ctx context.Context, runID string) ([]domain.GeoPoint, error) {
	return s.points.ListByRun(ctx, runID)
}
