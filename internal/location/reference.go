package location

import "github.com/sells-group/vibepick/internal/geo"

// ReferenceRadiusMiles is how close coordinates must be to a reference
// city to borrow its labels.
const ReferenceRadiusMiles = 50.0

// DefaultLocation is used when a postal code cannot be resolved at all.
var DefaultLocation = UserLocation{
	Latitude:  30.2672,
	Longitude: -97.7431,
	City:      "Austin",
	State:     "TX",
}

// ReferenceCities are the metros coordinates are labeled with when
// geocoding is unavailable.
var ReferenceCities = []geo.Metro{
	{City: "Austin", State: "TX", Point: geo.Point{Lat: 30.2672, Lng: -97.7431}},
	{City: "New York", State: "NY", Point: geo.Point{Lat: 40.7505, Lng: -73.9965}},
	{City: "Beverly Hills", State: "CA", Point: geo.Point{Lat: 34.1030, Lng: -118.4105}},
	{City: "Chicago", State: "IL", Point: geo.Point{Lat: 41.8857, Lng: -87.6225}},
	{City: "Miami", State: "FL", Point: geo.Point{Lat: 25.7743, Lng: -80.1937}},
	{City: "Seattle", State: "WA", Point: geo.Point{Lat: 47.6062, Lng: -122.3321}},
	{City: "Denver", State: "CO", Point: geo.Point{Lat: 39.7392, Lng: -104.9903}},
	{City: "Portland", State: "OR", Point: geo.Point{Lat: 45.5152, Lng: -122.6784}},
	{City: "Nashville", State: "TN", Point: geo.Point{Lat: 36.1627, Lng: -86.7816}},
	{City: "San Francisco", State: "CA", Point: geo.Point{Lat: 37.7749, Lng: -122.4194}},
}

type postalEntry struct {
	lat, lng    float64
	city, state string
}

// postalTable covers five codes in each reference metro.
var postalTable = map[string]postalEntry{
	"78701": {30.2672, -97.7431, "Austin", "TX"},
	"78702": {30.2729, -97.7444, "Austin", "TX"},
	"78703": {30.2753, -97.7444, "Austin", "TX"},
	"78704": {30.2501, -97.7546, "Austin", "TX"},
	"78705": {30.2984, -97.7390, "Austin", "TX"},

	"10001": {40.7505, -73.9965, "New York", "NY"},
	"10002": {40.7168, -73.9861, "New York", "NY"},
	"10003": {40.7326, -73.9896, "New York", "NY"},
	"10004": {40.6892, -74.0150, "New York", "NY"},
	"10005": {40.7060, -74.0086, "New York", "NY"},

	"90210": {34.1030, -118.4105, "Beverly Hills", "CA"},
	"90211": {34.0668, -118.3801, "Los Angeles", "CA"},
	"90212": {34.0736, -118.4000, "Los Angeles", "CA"},
	"90012": {34.0614, -118.2386, "Los Angeles", "CA"},
	"90013": {34.0454, -118.2434, "Los Angeles", "CA"},

	"60601": {41.8857, -87.6225, "Chicago", "IL"},
	"60602": {41.8839, -87.6318, "Chicago", "IL"},
	"60603": {41.8807, -87.6295, "Chicago", "IL"},
	"60604": {41.8756, -87.6274, "Chicago", "IL"},
	"60605": {41.8673, -87.6194, "Chicago", "IL"},

	"33101": {25.7743, -80.1937, "Miami", "FL"},
	"33102": {25.7867, -80.1334, "Miami", "FL"},
	"33109": {25.7907, -80.1300, "Miami Beach", "FL"},
	"33125": {25.7569, -80.2453, "Miami", "FL"},
	"33126": {25.7317, -80.2428, "Miami", "FL"},

	"98101": {47.6062, -122.3321, "Seattle", "WA"},
	"98102": {47.6163, -122.3207, "Seattle", "WA"},
	"98103": {47.6915, -122.3427, "Seattle", "WA"},
	"98104": {47.6062, -122.3321, "Seattle", "WA"},
	"98105": {47.6616, -122.3135, "Seattle", "WA"},

	"80201": {39.7392, -104.9903, "Denver", "CO"},
	"80202": {39.7392, -104.9903, "Denver", "CO"},
	"80203": {39.7392, -104.9903, "Denver", "CO"},
	"80204": {39.7392, -104.9903, "Denver", "CO"},
	"80205": {39.7392, -104.9903, "Denver", "CO"},

	"97201": {45.5152, -122.6784, "Portland", "OR"},
	"97202": {45.5152, -122.6784, "Portland", "OR"},
	"97203": {45.5152, -122.6784, "Portland", "OR"},
	"97204": {45.5152, -122.6784, "Portland", "OR"},
	"97205": {45.5152, -122.6784, "Portland", "OR"},

	"37201": {36.1627, -86.7816, "Nashville", "TN"},
	"37202": {36.1627, -86.7816, "Nashville", "TN"},
	"37203": {36.1627, -86.7816, "Nashville", "TN"},
	"37204": {36.1627, -86.7816, "Nashville", "TN"},
	"37205": {36.1627, -86.7816, "Nashville", "TN"},

	"94102": {37.7749, -122.4194, "San Francisco", "CA"},
	"94103": {37.7749, -122.4194, "San Francisco", "CA"},
	"94104": {37.7749, -122.4194, "San Francisco", "CA"},
	"94105": {37.7749, -122.4194, "San Francisco", "CA"},
	"94107": {37.7749, -122.4194, "San Francisco", "CA"},
}

// lookupPostal finds code, or its five-digit prefix for ZIP+4 codes.
func lookupPostal(code string) (postalEntry, bool) {
	if e, ok := postalTable[code]; ok {
		return e, true
	}
	if len(code) > 5 {
		e, ok := postalTable[code[:5]]
		return e, ok
	}
	return postalEntry{}, false
}
