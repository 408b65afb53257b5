package model

import "time"

// Resource is a reservable physical item in the catalog. Type and Generation
// are the two facet dimensions the sidebar filter operates on; DisplayColor is
// an index into the fixed display palette and must be unique among active
// resources.
type Resource struct {
	ID           string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name         string    `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Type         string    `json:"type" bson:"type" validate:"required,min=1,max=50"`
	Generation   string    `json:"generation" bson:"generation" validate:"required,min=1,max=50"`
	Note         string    `json:"note" bson:"note" validate:"omitempty,max=500"`
	DisplayColor int       `json:"display_color" bson:"display_color" validate:"min=0"`
	CreatedAt    time.Time `json:"created_at,omitempty" bson:"created_at" validate:"omitempty"`
}

type ResourceUpdate struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Type         *string `json:"type,omitempty" validate:"omitempty,min=1,max=50"`
	Generation   *string `json:"generation,omitempty" validate:"omitempty,min=1,max=50"`
	Note         *string `json:"note,omitempty" validate:"omitempty,max=500"`
	DisplayColor *int    `json:"display_color,omitempty" validate:"omitempty,min=0"`
}

// PaletteEntry pairs a palette index with its rendered hex color. The list of
// free entries is what the catalog offers when a resource is created.
type PaletteEntry struct {
	Index int    `json:"index"`
	Color string `json:"color"`
}
