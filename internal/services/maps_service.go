package services

import (
	"context"
	"errors"
	"fmt"
	"pharmacist/internal/models"
	"time"

	"googlemaps.github.io/maps"
)

const (
	DefaultPharmacyRadius = 2000
	MaxPharmacyRadius     = 10000
)

var ErrNoAPIKey = errors.New("google maps API key not set")

// PharmacyFinder looks up pharmacies around a point
type PharmacyFinder interface {
	NearbyPharmacies(ctx context.Context, lat, lng float64, radius uint) ([]models.Pharmacy, error)
	PharmacyDetails(ctx context.Context, placeID string) (*models.Pharmacy, error)
}

type MapsService struct {
	client *maps.Client
}

// NewMapsService initializes the Google Maps client
func NewMapsService(apiKey string) (*MapsService, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}

	return &MapsService{client: client}, nil
}

// NearbyPharmacies runs a Places nearby search for pharmacies, results in Persian
func (s *MapsService) NearbyPharmacies(ctx context.Context, lat, lng float64, radius uint) ([]models.Pharmacy, error) {
	if radius == 0 {
		radius = DefaultPharmacyRadius
	}
	if radius > MaxPharmacyRadius {
		radius = MaxPharmacyRadius
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	request := &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: lat, Lng: lng},
		Radius:   radius,
		Type:     maps.PlaceTypePharmacy,
		Language: "fa",
	}

	response, err := s.client.NearbySearch(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("nearby search failed: %w", err)
	}

	pharmacies := make([]models.Pharmacy, 0, len(response.Results))
	for _, result := range response.Results {
		pharmacies = append(pharmacies, pharmacyFromSearchResult(result))
	}
	return pharmacies, nil
}

// PharmacyDetails fetches address, phone and opening state of one place
func (s *MapsService) PharmacyDetails(ctx context.Context, placeID string) (*models.Pharmacy, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	request := &maps.PlaceDetailsRequest{
		PlaceID:  placeID,
		Language: "fa",
		Fields: []maps.PlaceDetailsFieldMask{
			maps.PlaceDetailsFieldMaskGeometry,
			maps.PlaceDetailsFieldMaskFormattedAddress,
			maps.PlaceDetailsFieldMaskFormattedPhoneNumber,
			maps.PlaceDetailsFieldMaskName,
			maps.PlaceDetailsFieldMaskPlaceID,
			maps.PlaceDetailsFieldMaskOpeningHours,
		},
	}

	response, err := s.client.PlaceDetails(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("place details failed: %w", err)
	}

	pharmacy := pharmacyFromDetails(response)
	return &pharmacy, nil
}

func pharmacyFromSearchResult(r maps.PlacesSearchResult) models.Pharmacy {
	p := models.Pharmacy{
		PlaceID:   r.PlaceID,
		Name:      r.Name,
		Address:   r.Vicinity,
		Latitude:  r.Geometry.Location.Lat,
		Longitude: r.Geometry.Location.Lng,
		Rating:    r.Rating,
		Types:     r.Types,
	}
	if p.Address == "" {
		p.Address = r.FormattedAddress
	}
	if r.OpeningHours != nil {
		p.OpenNow = r.OpeningHours.OpenNow
	}
	return p
}

func pharmacyFromDetails(r maps.PlaceDetailsResult) models.Pharmacy {
	p := models.Pharmacy{
		PlaceID:   r.PlaceID,
		Name:      r.Name,
		Address:   r.FormattedAddress,
		Phone:     r.FormattedPhoneNumber,
		Latitude:  r.Geometry.Location.Lat,
		Longitude: r.Geometry.Location.Lng,
		Rating:    r.Rating,
		Types:     r.Types,
	}
	if r.OpeningHours != nil {
		p.OpenNow = r.OpeningHours.OpenNow
	}
	return p
}
