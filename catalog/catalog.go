// Package catalog holds the service-capability catalog: per-integration
// prompt text loaded from a data file, fully decoupled from the memory
// pipeline.
package catalog

import (
	_ "embed"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed services.yaml
var servicesYAML []byte

// Service is one catalog entry.
type Service struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Prompt string `yaml:"prompt"`
}

type Catalog struct {
	services map[string]Service
	order    []string
}

// Load parses the embedded catalog data file.
func Load() (*Catalog, error) {
	return Parse(servicesYAML)
}

// Parse builds a catalog from raw YAML. Exposed for tests and for loading a
// catalog from an external file.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Services []Service `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse service catalog")
	}

	c := &Catalog{services: make(map[string]Service, len(doc.Services))}
	for _, svc := range doc.Services {
		if svc.ID == "" {
			return nil, errors.New("service catalog entry missing id")
		}
		c.services[svc.ID] = svc
		c.order = append(c.order, svc.ID)
	}
	return c, nil
}

// Prompt returns the prompt extension for a service id, or "" when the id is
// unknown.
func (c *Catalog) Prompt(id string) string {
	return c.services[id].Prompt
}

// Services lists catalog entries in file order.
func (c *Catalog) Services() []Service {
	out := make([]Service, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.services[id])
	}
	return out
}
