package repos

import (
	"gorm.io/gorm"

	"github.com/venturecanvas/venturecanvas-backend/internal/data/repos/canvas"
	"github.com/venturecanvas/venturecanvas-backend/internal/data/repos/cascade"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

type ProjectRepo = canvas.ProjectRepo
type EntityStore = canvas.EntityStore
type StaleEntity = canvas.StaleEntity

type DependencyEdgeRepo = cascade.DependencyEdgeRepo
type ChangeEventRepo = cascade.ChangeEventRepo
type CascadeEventRepo = cascade.CascadeEventRepo
type CascadeEventFilter = cascade.CascadeEventFilter
type ActivityRepo = cascade.ActivityRepo

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return canvas.NewProjectRepo(db, baseLog)
}
func NewEntityStore(db *gorm.DB, baseLog *logger.Logger) EntityStore {
	return canvas.NewEntityStore(db, baseLog)
}

func NewDependencyEdgeRepo(db *gorm.DB, baseLog *logger.Logger) DependencyEdgeRepo {
	return cascade.NewDependencyEdgeRepo(db, baseLog)
}
func NewChangeEventRepo(db *gorm.DB, baseLog *logger.Logger) ChangeEventRepo {
	return cascade.NewChangeEventRepo(db, baseLog)
}
func NewCascadeEventRepo(db *gorm.DB, baseLog *logger.Logger) CascadeEventRepo {
	return cascade.NewCascadeEventRepo(db, baseLog)
}
func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return cascade.NewActivityRepo(db, baseLog)
}
