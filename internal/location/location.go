// Package location resolves a UserLocation from device coordinates or a US
// postal code, falling back through geocoding, reference tables and fixed
// defaults so a usable location is always produced once input is valid.
package location

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vibepick/internal/geo"
)

// Placeholder labels used when nothing better is known.
const (
	PlaceholderCity  = "Your Area"
	PlaceholderState = "Your State"
)

// Sources name the tier that produced a UserLocation.
const (
	SourceReverseGeocode   = "reverse_geocode"
	SourceFormattedAddress = "formatted_address"
	SourceReferenceCity    = "reference_city"
	SourcePlaceholder      = "placeholder"
	SourceForwardGeocode   = "forward_geocode"
	SourcePostalTable      = "postal_table"
	SourceDefault          = "default"
)

// UserLocation is a resolved location. Coordinates are always valid; City
// and State are best effort and may hold placeholder labels.
type UserLocation struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	City       string  `json:"city,omitempty"`
	State      string  `json:"state,omitempty"`
	PostalCode string  `json:"postal_code,omitempty"`
	Source     string  `json:"source,omitempty"`
}

// Point returns the coordinates as a geo.Point.
func (u UserLocation) Point() geo.Point {
	return geo.Point{Lat: u.Latitude, Lng: u.Longitude}
}

// IsPlaceholder reports whether the labels are the generic placeholders.
func (u UserLocation) IsPlaceholder() bool {
	return u.City == PlaceholderCity && u.State == PlaceholderState
}

// Label renders "City, ST", or "your area" when the labels are unknown.
func (u UserLocation) Label() string {
	if u.City == "" || u.State == "" || u.IsPlaceholder() {
		return "your area"
	}
	return u.City + ", " + u.State
}

var (
	// ErrLocationUnavailable is matched by every *UnavailableError.
	ErrLocationUnavailable = eris.New("location: unavailable")

	// ErrInvalidPostalCode is returned for codes not shaped like 12345 or 12345-6789.
	ErrInvalidPostalCode = eris.New("location: invalid postal code")
)

// Reason explains why the device position could not be read.
type Reason string

// Device failure reasons.
const (
	ReasonPermissionDenied    Reason = "permission_denied"
	ReasonPositionUnavailable Reason = "position_unavailable"
	ReasonTimeout             Reason = "timeout"
	ReasonUnsupported         Reason = "unsupported"
)

// Message is the user-facing text for the reason.
func (r Reason) Message() string {
	switch r {
	case ReasonPermissionDenied:
		return "Location access denied. Please enable location permissions."
	case ReasonPositionUnavailable:
		return "Location information unavailable."
	case ReasonTimeout:
		return "Location request timed out."
	default:
		return "Unable to get your location"
	}
}

// UnavailableError is a device-level failure. errors.Is(err,
// ErrLocationUnavailable) holds for every instance.
type UnavailableError struct {
	Reason Reason
	Err    error
}

// NewUnavailableError creates an UnavailableError.
func NewUnavailableError(reason Reason, err error) *UnavailableError {
	return &UnavailableError{Reason: reason, Err: err}
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("location: unavailable (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("location: unavailable (%s)", e.Reason)
}

// Is matches ErrLocationUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrLocationUnavailable
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// CleanPostalCode trims the code and removes inner whitespace.
func CleanPostalCode(code string) string {
	return strings.Join(strings.Fields(code), "")
}
