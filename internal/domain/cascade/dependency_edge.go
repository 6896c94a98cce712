package cascade

import (
	"time"

	"github.com/google/uuid"
)

// DependencyEdge is a directed typed relation: source's correctness depends
// on target. When target changes, source must be reconsidered. One row per
// (project, source, target, relation); re-registering updates strength.
type DependencyEdge struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	ProjectID uuid.UUID `gorm:"type:uuid;column:project_id;not null;index:idx_dependency_edge_project;index:idx_dependency_edge_key,unique,priority:1" json:"project_id"`

	SourceType EntityType `gorm:"column:source_type;not null;index:idx_dependency_edge_source;index:idx_dependency_edge_key,unique,priority:2" json:"source_type"`
	SourceID   uuid.UUID  `gorm:"type:uuid;column:source_id;not null;index:idx_dependency_edge_source;index:idx_dependency_edge_key,unique,priority:3" json:"source_id"`

	TargetType EntityType `gorm:"column:target_type;not null;index:idx_dependency_edge_target;index:idx_dependency_edge_key,unique,priority:4" json:"target_type"`
	TargetID   uuid.UUID  `gorm:"type:uuid;column:target_id;not null;index:idx_dependency_edge_target;index:idx_dependency_edge_key,unique,priority:5" json:"target_id"`

	Relation RelationType `gorm:"column:relation;not null;index:idx_dependency_edge_key,unique,priority:6" json:"relation"`
	Strength float64      `gorm:"column:strength;not null;default:1" json:"strength"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (DependencyEdge) TableName() string { return "dependency_edge" }

func (e *DependencyEdge) Source() EntityRef {
	return EntityRef{Type: e.SourceType, ID: e.SourceID}
}

func (e *DependencyEdge) Target() EntityRef {
	return EntityRef{Type: e.TargetType, ID: e.TargetID}
}
