package models

// NodeTypeDescriptor describes a node type offered by the palette.
type NodeTypeDescriptor struct {
	ID            string         `json:"id"                       yaml:"id"                       validate:"required"`
	Name          string         `json:"name"                     yaml:"name"`
	Description   string         `json:"description,omitempty"    yaml:"description,omitempty"`
	Category      CategoryType   `json:"category,omitempty"       yaml:"category,omitempty"`
	DefaultConfig map[string]any `json:"default_config,omitempty" yaml:"default_config,omitempty"`
}

// NodeTypeCatalog groups descriptors by category.
type NodeTypeCatalog struct {
	Categories map[CategoryType][]NodeTypeDescriptor `json:"categories" yaml:"categories"`
}
