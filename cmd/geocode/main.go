package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/sfomuseum/go-geotag-photos/geocode"
)

func main() {

	address := flag.String("address", "", "A free-text address to geocode.")
	postal_code := flag.String("postal-code", "", "A 5-digit US postal code to geocode.")

	flag.Parse()

	ctx := context.Background()

	g := &geocode.Geocoder{}

	var results []*geocode.Result
	var err error

	switch {
	case *postal_code != "":
		results, err = g.SearchPostalCode(ctx, *postal_code)
	case *address != "":
		results, err = g.SearchAddress(ctx, *address)
	default:
		log.Fatal("Nothing to geocode")
	}

	if err != nil {
		log.Fatal(err)
	}

	for _, r := range results {

		enc, err := json.Marshal(r)

		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(string(enc))
	}
}
