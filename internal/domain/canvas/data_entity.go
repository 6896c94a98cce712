package canvas

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DataEntity struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	ProjectID uuid.UUID `gorm:"type:uuid;column:project_id;not null;index:idx_data_entity_project" json:"project_id"`

	Name        string         `gorm:"column:name;not null" json:"name"`
	Description string         `gorm:"column:description;type:text" json:"description,omitempty"`
	SchemaDef   datatypes.JSON `gorm:"column:schema_def;type:jsonb" json:"schema_def,omitempty"`

	ConfirmationStatus string `gorm:"column:confirmation_status;not null;default:'ai_generated'" json:"confirmation_status"`

	Stale       bool       `gorm:"column:stale;not null;default:false;index" json:"stale"`
	StaleReason string     `gorm:"column:stale_reason;type:text" json:"stale_reason,omitempty"`
	StaleSince  *time.Time `gorm:"column:stale_since" json:"stale_since,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (DataEntity) TableName() string { return "data_entity" }
