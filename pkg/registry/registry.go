// Package registry indexes the node-type catalog offered by the palette.
package registry

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/dukex/flowedit/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// CronConfigKey names the default config field holding a schedule expression.
const CronConfigKey = "cron"

// Registry answers node-type lookups against a loaded catalog.
type Registry struct {
	logger     *slog.Logger
	byID       map[string]models.NodeTypeDescriptor
	categories map[models.CategoryType][]models.NodeTypeDescriptor
}

func NewRegistry(log *slog.Logger, catalog *models.NodeTypeCatalog) *Registry {
	r := &Registry{
		logger:     log,
		byID:       map[string]models.NodeTypeDescriptor{},
		categories: map[models.CategoryType][]models.NodeTypeDescriptor{},
	}

	if catalog == nil {
		return r
	}

	for category, descriptors := range catalog.Categories {
		for _, desc := range descriptors {
			if desc.Category == "" {
				desc.Category = category
			}

			if _, dup := r.byID[desc.ID]; dup {
				log.Warn("Duplicate node type in catalog, keeping first", "node_type", desc.ID, "category", category)

				continue
			}

			r.byID[desc.ID] = desc
			r.categories[category] = append(r.categories[category], desc)
		}
	}

	return r
}

// Lookup returns the descriptor for a node type id.
func (r *Registry) Lookup(id string) (models.NodeTypeDescriptor, bool) {
	desc, ok := r.byID[id]

	return desc, ok
}

// Has reports whether the node type exists.
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[id]

	return ok
}

// Len is the number of node types.
func (r *Registry) Len() int {
	return len(r.byID)
}

// Categories lists the category names in sorted order.
func (r *Registry) Categories() []models.CategoryType {
	out := make([]models.CategoryType, 0, len(r.categories))
	for c := range r.categories {
		out = append(out, c)
	}

	slices.Sort(out)

	return out
}

// Catalog rebuilds the grouped catalog.
func (r *Registry) Catalog() *models.NodeTypeCatalog {
	out := &models.NodeTypeCatalog{Categories: make(map[models.CategoryType][]models.NodeTypeDescriptor, len(r.categories))}
	for c, descs := range r.categories {
		out.Categories[c] = slices.Clone(descs)
	}

	return out
}

// HealthCheck reports whether any node type is available.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.byID) == 0 {
		return "no node types registered", false
	}

	return fmt.Sprintf("%d node types registered", len(r.byID)), true
}

// LoadCatalogFile reads a YAML catalog and validates every descriptor.
func LoadCatalogFile(path string) (*models.NodeTypeCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	var catalog models.NodeTypeCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse YAML catalog: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	for category, descriptors := range catalog.Categories {
		for i, desc := range descriptors {
			if err := validate.Struct(desc); err != nil {
				return nil, fmt.Errorf("catalog category %s entry %d: %w", category, i, err)
			}

			if err := validateSchedule(desc); err != nil {
				return nil, fmt.Errorf("catalog category %s entry %d: %w", category, i, err)
			}
		}
	}

	return &catalog, nil
}

// validateSchedule checks a default cron expression in standard 5-field form.
func validateSchedule(desc models.NodeTypeDescriptor) error {
	expr, ok := desc.DefaultConfig[CronConfigKey].(string)
	if !ok {
		return nil
	}

	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("node type %s has invalid cron expression %q: %w", desc.ID, expr, err)
	}

	return nil
}
