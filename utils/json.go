package utils

import (
	"encoding/json"
	"os"

	"github.com/gigabite-pro/kickrax-sub000/models"
)

// WriteJSON writes the ranked comparison groups to a single JSON file.
// Returns the number of groups written.
func WriteJSON(filename string, groups []models.AggregatedListing) (int, error) {
	f, err := os.Create(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(groups); err != nil {
		return 0, err
	}

	return len(groups), nil
}
