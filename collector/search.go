package collector

import (
	"net/url"
	"strconv"
)

// Search describes the listing query. Every page of the query is built
// from the same parameters.
type Search struct {
	BaseURL    string `yaml:"base_url"`
	Gender     int    `yaml:"gender"`
	AgeFrom    int    `yaml:"age_from"`
	AgeTo      int    `yaml:"age_to"`
	LocationID int    `yaml:"location_id"`
	EndPage    int    `yaml:"end_page"`
}

// DefaultSearch returns the query the watcher runs when nothing is
// configured.
func DefaultSearch() Search {
	return Search{
		BaseURL:    "https://atolin.ru/anketa/search",
		Gender:     0,
		AgeFrom:    18,
		AgeTo:      35,
		LocationID: 140,
		EndPage:    1,
	}
}

// PageURL returns the URL of listing page n (1-based).
func (s Search) PageURL(page int) string {
	params := url.Values{}
	params.Set("AnketaSearch[gender][]", strconv.Itoa(s.Gender))
	params.Set("AnketaSearch[agefrom]", strconv.Itoa(s.AgeFrom))
	params.Set("AnketaSearch[ageto]", strconv.Itoa(s.AgeTo))
	params.Set("AnketaSearch[location_id]", strconv.Itoa(s.LocationID))
	params.Set("page", strconv.Itoa(page))

	return s.BaseURL + "?" + params.Encode()
}
