package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testResponse = `[
  {"lat": "40.7127281", "lon": "-74.0060152", "display_name": "City of New York, New York, United States"},
  {"lat": "999.0", "lon": "0.0", "display_name": "out of range"},
  {"display_name": "no coordinates"}
]`

func testServer(t *testing.T, check func(*http.Request)) *httptest.Server {

	handler := func(rsp http.ResponseWriter, req *http.Request) {

		if check != nil {
			check(req)
		}

		rsp.Header().Set("Content-Type", "application/json")
		rsp.Write([]byte(testResponse))
	}

	return httptest.NewServer(http.HandlerFunc(handler))
}

func TestSearchAddress(t *testing.T) {

	ctx := context.Background()

	var query string

	s := testServer(t, func(req *http.Request) {
		query = req.URL.Query().Get("q")
	})

	defer s.Close()

	g := &Geocoder{
		Endpoint: s.URL,
	}

	results, err := g.SearchAddress(ctx, "new york city")

	if err != nil {
		t.Fatalf("Failed to search, %v", err)
	}

	if query != "new york city" {
		t.Fatalf("Unexpected query %q", query)
	}

	// Candidates with missing or out-of-range coordinates are dropped.

	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}

	r := results[0]

	if r.Coordinates.Latitude != 40.7127281 || r.Coordinates.Longitude != -74.0060152 {
		t.Fatalf("Unexpected coordinates %v", r.Coordinates)
	}

	if r.DisplayName != "City of New York, New York, United States" {
		t.Fatalf("Unexpected display name %q", r.DisplayName)
	}
}

func TestSearchPostalCode(t *testing.T) {

	ctx := context.Background()

	var code string
	var country string

	s := testServer(t, func(req *http.Request) {
		code = req.URL.Query().Get("postalcode")
		country = req.URL.Query().Get("country")
	})

	defer s.Close()

	g := &Geocoder{
		Endpoint: s.URL,
	}

	_, err := g.SearchPostalCode(ctx, "10007")

	if err != nil {
		t.Fatalf("Failed to search, %v", err)
	}

	if code != "10007" || country != "USA" {
		t.Fatalf("Unexpected query (%q, %q)", code, country)
	}
}

func TestSearchPostalCodeInvalid(t *testing.T) {

	ctx := context.Background()

	g := &Geocoder{
		Endpoint: "http://localhost:1", // must never be reached
	}

	tests := []string{"", "1234", "123456", "1000a", "10-07"}

	for _, code := range tests {

		_, err := g.SearchPostalCode(ctx, code)

		if err == nil {
			t.Fatalf("Expected an error for postal code %q", code)
		}
	}
}

func TestSearchInvalidJSON(t *testing.T) {

	ctx := context.Background()

	handler := func(rsp http.ResponseWriter, req *http.Request) {
		rsp.Write([]byte("<html>not json</html>"))
	}

	s := httptest.NewServer(http.HandlerFunc(handler))
	defer s.Close()

	g := &Geocoder{
		Endpoint: s.URL,
	}

	_, err := g.SearchAddress(ctx, "anywhere")

	if err == nil {
		t.Fatalf("Expected an error for an invalid response body")
	}
}
