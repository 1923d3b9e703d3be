// Package geocode is a small client for the Nominatim geocoding service,
// used to resolve free-text addresses and US postal codes in to candidate
// coordinates. Results are advisory input for coordinate assignment; the
// processing pipeline itself never touches the network.
package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"

	"github.com/sfomuseum/go-geotag-photos/photo"
	"github.com/tidwall/gjson"
)

// DefaultEndpoint is the public Nominatim search endpoint.
const DefaultEndpoint = "https://nominatim.openstreetmap.org/search"

const userAgent = "go-geotag-photos (github.com/sfomuseum/go-geotag-photos)"

var rePostalCode = regexp.MustCompile(`^\d{5}$`)

// Result is a single geocoding candidate.
type Result struct {
	// DisplayName is the service's human-readable label for the place.
	DisplayName string `json:"display_name"`
	// Coordinates is the candidate location.
	Coordinates *photo.Coordinates `json:"coordinates"`
}

// Geocoder issues search requests against a Nominatim-compatible endpoint.
type Geocoder struct {
	// Endpoint is the search endpoint to query. Defaults to DefaultEndpoint.
	Endpoint string
	// Client is the HTTP client to use. Defaults to http.DefaultClient.
	Client *http.Client
}

// SearchAddress geocodes a free-text address, returning up to five candidates.
func (g *Geocoder) SearchAddress(ctx context.Context, address string) ([]*Result, error) {

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "5")

	return g.search(ctx, q)
}

// SearchPostalCode geocodes a 5-digit US postal code, returning at most
// one candidate. The code's shape is validated before any request is made.
func (g *Geocoder) SearchPostalCode(ctx context.Context, code string) ([]*Result, error) {

	if !rePostalCode.MatchString(code) {
		return nil, fmt.Errorf("Invalid postal code '%s'", code)
	}

	q := url.Values{}
	q.Set("postalcode", code)
	q.Set("country", "USA")
	q.Set("format", "json")
	q.Set("limit", "1")

	return g.search(ctx, q)
}

func (g *Geocoder) search(ctx context.Context, q url.Values) ([]*Result, error) {

	endpoint := g.Endpoint

	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	cl := g.Client

	if cl == nil {
		cl = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s?%s", endpoint, q.Encode()), nil)

	if err != nil {
		return nil, fmt.Errorf("Failed to create request, %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	rsp, err := cl.Do(req)

	if err != nil {
		return nil, fmt.Errorf("Failed to query geocoder, %w", err)
	}

	defer rsp.Body.Close()

	if rsp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Geocoder returned %s", rsp.Status)
	}

	body, err := io.ReadAll(rsp.Body)

	if err != nil {
		return nil, fmt.Errorf("Failed to read geocoder response, %w", err)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("Geocoder returned invalid JSON")
	}

	results := make([]*Result, 0)

	for _, candidate := range gjson.ParseBytes(body).Array() {

		lat := candidate.Get("lat")
		lon := candidate.Get("lon")

		if !lat.Exists() || !lon.Exists() {
			continue
		}

		coords, err := photo.NewCoordinates(lat.Float(), lon.Float())

		if err != nil {
			continue
		}

		results = append(results, &Result{
			DisplayName: candidate.Get("display_name").String(),
			Coordinates: coords,
		})
	}

	return results, nil
}
