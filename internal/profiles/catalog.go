// Package profiles stores per-user deployment profiles as branches of a
// git repository, one branch per (user, config) pair.
package profiles

import (
	"encoding/json"
	"fmt"
	"os"
)

// Field describes one configurable value of a service.
type Field struct {
	Name    string `json:"name"`
	Label   string `json:"label,omitempty"`
	Type    string `json:"type,omitempty"` // text, password, checkbox
	Default string `json:"default,omitempty"`
}

// Service is one deployable application in the catalog.
type Service struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	DockerFields []Field `json:"docker_fields,omitempty"`
	NixOSFields  []Field `json:"nixos_fields,omitempty"`
}

// Fields returns the field set for a deployment type.
func (s Service) Fields(deployment string) []Field {
	if deployment == "nixos" {
		return s.NixOSFields
	}
	return s.DockerFields
}

// Catalog is the services.json service definition.
type Catalog struct {
	Services     []Service          `json:"services"`
	GlobalFields map[string][]Field `json:"global_fields"`
}

// LoadCatalog reads and decodes a services.json file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service catalog: %w", err)
	}
	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to decode service catalog: %w", err)
	}
	return &cat, nil
}

// Service looks a service up by ID.
func (c *Catalog) Service(id string) (Service, bool) {
	for _, s := range c.Services {
		if s.ID == id {
			return s, true
		}
	}
	return Service{}, false
}
