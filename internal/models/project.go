package models

import (
	"strings"
	"time"
)

type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ProjectAttrs are the optional fields supplied when creating a project.
type ProjectAttrs struct {
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// ProjectUpdate is a partial update; nil fields are left unchanged.
type ProjectUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	Icon        *string `json:"icon,omitempty"`
}

func NewProject(name string, attrs ProjectAttrs) Project {
	return Project{
		ID:          NewProjectID(),
		Name:        strings.TrimSpace(name),
		Description: attrs.Description,
		Color:       attrs.Color,
		Icon:        attrs.Icon,
		CreatedAt:   time.Now(),
	}
}

// Apply merges the non-nil fields of u into p.
func (p *Project) Apply(u ProjectUpdate) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Color != nil {
		p.Color = *u.Color
	}
	if u.Icon != nil {
		p.Icon = *u.Icon
	}
}

// ResolveProject returns the project conv belongs to, or nil when it is
// unassigned or its reference dangles.
func ResolveProject(projects []Project, conv Conversation) *Project {
	if conv.ProjectID == "" {
		return nil
	}
	for i := range projects {
		if projects[i].ID == conv.ProjectID {
			p := projects[i]
			return &p
		}
	}
	return nil
}

func CloneProjects(in []Project) []Project {
	out := make([]Project, len(in))
	copy(out, in)
	return out
}
