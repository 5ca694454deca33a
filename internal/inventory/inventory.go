// Package inventory loads the fleet router list.
//
// The default format is a headerless delimited flat file (one router per
// line, `address,name[,...]`; extra fields are ignored). Lists ending in
// .yaml or .yml are parsed as a YAML sequence of {address, name} objects.
package inventory

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Router identifies one fleet member. Read once at run start and immutable
// for the run's duration.
type Router struct {
	Address string `yaml:"address"`
	Name    string `yaml:"name"`
}

// Load reads the router list at path. Any failure here is fatal to the run:
// no work is possible without the list.
func Load(path string) ([]Router, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path)
	default:
		return loadCSV(path)
	}
}

func loadCSV(path string) ([]Router, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open router list: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // rows may carry trailing extra fields

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse router list %s: %w", path, err)
	}

	var routers []Router
	for i, rec := range records {
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("parse router list %s: line %d: expected at least address and name, got %d field(s)", path, i+1, len(rec))
		}
		addr := strings.TrimSpace(rec[0])
		name := strings.TrimSpace(rec[1])
		if addr == "" || name == "" {
			return nil, fmt.Errorf("parse router list %s: line %d: empty address or name", path, i+1)
		}
		routers = append(routers, Router{Address: addr, Name: name})
	}
	return routers, nil
}

func loadYAML(path string) ([]Router, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open router list: %w", err)
	}

	var routers []Router
	if err := yaml.Unmarshal(data, &routers); err != nil {
		return nil, fmt.Errorf("parse router list %s: %w", path, err)
	}
	for i, r := range routers {
		if r.Address == "" || r.Name == "" {
			return nil, fmt.Errorf("parse router list %s: entry %d: empty address or name", path, i+1)
		}
	}
	return routers, nil
}
