package server

import (
	"net/http"

	"github.com/playperu/mapquiz/internal/mapquiz"
)

// CampusResponse tells the front-end where to centre the map and how far
// it may be viewed. Addresses stay server-side.
type CampusResponse struct {
	Name      string         `json:"name"`
	Center    mapquiz.Coord  `json:"center"`
	Bounds    mapquiz.Bounds `json:"bounds"`
	Locations []string       `json:"locations"`
}

func handleCampus(campus mapquiz.Campus) http.HandlerFunc {
	resp := CampusResponse{
		Name:   campus.Name,
		Center: campus.Center,
		Bounds: campus.Bounds,
	}
	for _, loc := range campus.Locations {
		resp.Locations = append(resp.Locations, loc.Name)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, resp)
	}
}
