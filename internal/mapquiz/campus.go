package mapquiz

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed campus.yaml
var campusYAML []byte

// Campus is the fixed playing field: where the map is centred, how far it
// may be viewed, and the locations in play order.
type Campus struct {
	Name      string     `json:"name" yaml:"name"`
	Center    Coord      `json:"center" yaml:"center"`
	Bounds    Bounds     `json:"bounds" yaml:"bounds"`
	Locations []Location `json:"locations" yaml:"locations"`
}

// LoadCampus returns the embedded campus definition.
func LoadCampus() (Campus, error) {
	return parseCampus(campusYAML)
}

func parseCampus(data []byte) (Campus, error) {
	var c Campus
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Campus{}, fmt.Errorf("parsing campus: %w", err)
	}
	if len(c.Locations) == 0 {
		return Campus{}, errors.New("campus has no locations")
	}
	for i, loc := range c.Locations {
		if loc.Name == "" || loc.Address == "" {
			return Campus{}, fmt.Errorf("location %d: name and address are required", i)
		}
	}
	return c, nil
}
