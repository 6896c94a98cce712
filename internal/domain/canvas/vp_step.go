package canvas

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VPStep is one step on a project's value path. Step structure (count and
// order) is governed data: structural changes always go through review.
// NeededFeatureIDs is the step's needed-list, appended to when a feature
// cascade auto-applies against the step.
type VPStep struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	ProjectID uuid.UUID `gorm:"type:uuid;column:project_id;not null;index:idx_vp_step_project" json:"project_id"`

	Position int    `gorm:"column:position;not null;default:0;index" json:"position"`
	Title    string `gorm:"column:title;not null" json:"title"`
	Summary  string `gorm:"column:summary;type:text" json:"summary,omitempty"`
	StepKind string `gorm:"column:step_kind;not null;default:'activity'" json:"step_kind"`

	NeededFeatureIDs datatypes.JSON `gorm:"column:needed_feature_ids;type:jsonb" json:"needed_feature_ids,omitempty"`
	Metrics          datatypes.JSON `gorm:"column:metrics;type:jsonb" json:"metrics,omitempty"`

	ConfirmationStatus string `gorm:"column:confirmation_status;not null;default:'ai_generated'" json:"confirmation_status"`

	Stale       bool       `gorm:"column:stale;not null;default:false;index" json:"stale"`
	StaleReason string     `gorm:"column:stale_reason;type:text" json:"stale_reason,omitempty"`
	StaleSince  *time.Time `gorm:"column:stale_since" json:"stale_since,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (VPStep) TableName() string { return "vp_step" }
