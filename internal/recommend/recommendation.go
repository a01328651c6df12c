package recommend

import (
	"fmt"
	"net/url"

	"github.com/sells-group/vibepick/internal/location"
	"github.com/sells-group/vibepick/internal/mood"
	"github.com/sells-group/vibepick/internal/places"
)

// Display defaults.
const (
	HoursUnknown   = "Check hours online"
	HoursOpenNow   = "Open now"
	HoursClosedNow = "Closed now"
	DistanceNearby = "Nearby"

	mapsBaseURL = "https://maps.apple.com/?q="
)

// Recommendation is the outward-facing projection of a ranked place.
type Recommendation struct {
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	Reason       string   `json:"reason"`
	Mood         string   `json:"mood"`
	MoodImage    string   `json:"mood_image"`
	MapsURL      string   `json:"maps_url"`
	OpenHours    string   `json:"open_hours"`
	Distance     string   `json:"distance"`
	UserLocation string   `json:"user_location"`
	Rating       *float64 `json:"rating,omitempty"`
	PriceLevel   string   `json:"price_level,omitempty"`
	Category     string   `json:"category"`
	Website      string   `json:"website,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
	PhotoRef     string   `json:"photo_ref,omitempty"`
	ProviderID   string   `json:"provider_id"`
	ExternalID   string   `json:"external_id"`
}

// Project renders p for display with the given mood profile and reason index.
func Project(p places.Place, profile mood.Profile, reasonIdx int, loc location.UserLocation) Recommendation {
	label := loc.Label()

	address := p.Address
	if !p.HasCoordinates {
		if address == "" {
			address = label
		} else {
			address = address + ", " + label
		}
	}

	r := Recommendation{
		Name:         p.Name,
		Address:      address,
		Reason:       profile.Reason(reasonIdx),
		Mood:         profile.DisplayLabel,
		MoodImage:    profile.DisplayImageRef,
		MapsURL:      MapsURL(p.Name, address),
		OpenHours:    HoursText(p.OpenNow),
		Distance:     DistanceText(p),
		UserLocation: label,
		Rating:       p.Rating,
		PriceLevel:   p.PriceLevel,
		Category:     p.Category,
		Website:      p.Website,
		Phone:        p.Phone,
		ImageURL:     profile.DisplayImageRef,
		ProviderID:   p.ProviderID,
		ExternalID:   p.ExternalID,
	}
	if len(p.PhotoRefs) > 0 {
		r.PhotoRef = p.PhotoRefs[0]
	}
	return r
}

// MapsURL returns a maps search link for a place name and address.
func MapsURL(name, address string) string {
	return mapsBaseURL + url.QueryEscape(name+" "+address)
}

// DistanceText formats a place's distance, or DistanceNearby when the
// provider gave no coordinates.
func DistanceText(p places.Place) string {
	if !p.HasCoordinates {
		return DistanceNearby
	}
	return fmt.Sprintf("%.1f miles away", p.DistanceMiles)
}

// HoursText renders a known open-now flag.
func HoursText(openNow *bool) string {
	switch {
	case openNow == nil:
		return HoursUnknown
	case *openNow:
		return HoursOpenNow
	default:
		return HoursClosedNow
	}
}
