package db

import (
	types "github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Project scoping
		// =========================
		&types.Project{},

		// =========================
		// Canvas entities
		// =========================
		&types.Persona{},
		&types.Feature{},
		&types.VPStep{},
		&types.StrategicContext{},
		&types.Stakeholder{},
		&types.DataEntity{},
		&types.BusinessDriver{},
		&types.Unlock{},

		// =========================
		// Propagation core (edges + queue + audit + feed)
		// =========================
		&types.DependencyEdge{},
		&types.ChangeEvent{},
		&types.CascadeEvent{},
		&types.ActivityItem{},
	)
}
