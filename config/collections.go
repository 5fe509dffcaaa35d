package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"giftsniper/models"
)

// collectionEntry is the on-disk shape of one watch-list entry. The file maps
// a human readable collection name to its marketplace identifiers and the
// model classifiers worth sniping.
type collectionEntry struct {
	CollectionID string   `json:"collection_id"`
	ShortName    string   `json:"short_name"`
	Models       []string `json:"models"`
}

// LoadCollections reads the watch-list file. Entries without a collection id
// or slug are skipped; an unreadable or unparseable file is an error since
// the monitor cannot run without a watch list.
func LoadCollections(path string) ([]models.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read collections file: %w", err)
	}

	var entries map[string]collectionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse collections file: %w", err)
	}

	collections := make([]models.Collection, 0, len(entries))
	for name, entry := range entries {
		if entry.CollectionID == "" || entry.ShortName == "" {
			continue
		}
		collections = append(collections, models.Collection{
			ID:        entry.CollectionID,
			Name:      name,
			ShortName: entry.ShortName,
			Models:    entry.Models,
		})
	}

	// Map iteration order is random; keep worker ordering stable
	sort.Slice(collections, func(i, j int) bool {
		return collections[i].ShortName < collections[j].ShortName
	})

	return collections, nil
}
