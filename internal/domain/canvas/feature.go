package canvas

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Feature struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	ProjectID uuid.UUID `gorm:"type:uuid;column:project_id;not null;index:idx_feature_project" json:"project_id"`

	Title   string `gorm:"column:title;not null" json:"title"`
	Summary string `gorm:"column:summary;type:text" json:"summary,omitempty"`
	Kind    string `gorm:"column:kind;not null;default:'capability'" json:"kind"`

	Spec     datatypes.JSON `gorm:"column:spec;type:jsonb" json:"spec,omitempty"`
	Priority int            `gorm:"column:priority;not null;default:0" json:"priority"`

	ConfirmationStatus string `gorm:"column:confirmation_status;not null;default:'ai_generated'" json:"confirmation_status"`

	Stale       bool       `gorm:"column:stale;not null;default:false;index" json:"stale"`
	StaleReason string     `gorm:"column:stale_reason;type:text" json:"stale_reason,omitempty"`
	StaleSince  *time.Time `gorm:"column:stale_since" json:"stale_since,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Feature) TableName() string { return "feature" }
