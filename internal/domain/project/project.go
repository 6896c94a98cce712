package project

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Project is the scoping unit for a canvas: every entity, edge, queue row
// and cascade record hangs off exactly one project.
type Project struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	Name  string `gorm:"column:name;not null" json:"name"`
	Stage string `gorm:"column:stage;not null;default:'discovery'" json:"stage"`

	Settings datatypes.JSON `gorm:"column:settings;type:jsonb" json:"settings,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Project) TableName() string { return "project" }
