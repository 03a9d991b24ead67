// Package project models a generated backend: its documents and the
// modules scaffolded from its entities.
package project

import (
	"time"
)

// Attribute is one field of an entity.
type Attribute struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Required bool   `json:"required" yaml:"required"`
	Comment  string `json:"comment" yaml:"comment"`
}

// Entity is the data model a module is built around.
type Entity struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Attributes  []Attribute `json:"attributes" yaml:"attributes"`
}

// ModuleAPI describes one endpoint a module exposes.
type ModuleAPI struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Params      []string `json:"params" yaml:"params"`
	ReturnType  string   `json:"return_type" yaml:"return_type"`
}

// Module is a backend feature module. Created is set once its files
// have been generated.
type Module struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Entity      Entity      `json:"entity" yaml:"entity"`
	Created     bool        `json:"created" yaml:"created"`
	APIs        []ModuleAPI `json:"apis" yaml:"apis"`
}

// Document names inside the project's docs directory.
const (
	DocRequirement    = "requirement"
	DocDatabaseDesign = "database_design"
)

// Project is the metadata saved for a generated backend. Document bodies
// live in separate files and are referenced by name.
type Project struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	CreatedAt   time.Time `yaml:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at"`
	Modules     []Module  `yaml:"modules,omitempty"`
	// ContainerID and HostPort describe the last container started for
	// the project, if any.
	ContainerID string `yaml:"container_id,omitempty"`
	HostPort    int    `yaml:"host_port,omitempty"`
}

// New creates a project stamped with the current time.
func New(name, description string) *Project {
	now := time.Now().UTC()
	return &Project{
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// PendingModules returns the modules whose files have not been generated.
func (p *Project) PendingModules() []*Module {
	var out []*Module
	for i := range p.Modules {
		if !p.Modules[i].Created {
			out = append(out, &p.Modules[i])
		}
	}
	return out
}

// Module finds a module by name.
func (p *Project) Module(name string) *Module {
	for i := range p.Modules {
		if p.Modules[i].Name == name {
			return &p.Modules[i]
		}
	}
	return nil
}

// Touch bumps UpdatedAt.
func (p *Project) Touch() {
	p.UpdatedAt = time.Now().UTC()
}
