package canvas

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BusinessDriver struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	ProjectID uuid.UUID `gorm:"type:uuid;column:project_id;not null;index:idx_business_driver_project" json:"project_id"`

	Name   string         `gorm:"column:name;not null" json:"name"`
	Kind   string         `gorm:"column:kind;not null;default:'revenue'" json:"kind"`
	Metric datatypes.JSON `gorm:"column:metric;type:jsonb" json:"metric,omitempty"`

	ConfirmationStatus string `gorm:"column:confirmation_status;not null;default:'ai_generated'" json:"confirmation_status"`

	Stale       bool       `gorm:"column:stale;not null;default:false;index" json:"stale"`
	StaleReason string     `gorm:"column:stale_reason;type:text" json:"stale_reason,omitempty"`
	StaleSince  *time.Time `gorm:"column:stale_since" json:"stale_since,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (BusinessDriver) TableName() string { return "business_driver" }
