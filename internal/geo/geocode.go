package geo

import (
	"fmt"

	"github.com/kelvins/geocoder"
)

// Resolve turns a city/country pair into coordinates via the Google
// geocoding API. Called once at startup when coordinate mode is selected
// without explicit latitude/longitude.
func Resolve(apiKey, city, country string) (lat, lon float64, err error) {
	if apiKey == "" {
		return 0, 0, fmt.Errorf("geocoder api key is not configured")
	}
	if city == "" {
		return 0, 0, fmt.Errorf("city is required for geocoding")
	}

	geocoder.ApiKey = apiKey

	location, err := geocoder.Geocoding(geocoder.Address{
		City:    city,
		Country: country,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("geocode %s,%s: %w", city, country, err)
	}

	return location.Latitude, location.Longitude, nil
}
