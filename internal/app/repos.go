package app

import (
	"gorm.io/gorm"

	"github.com/venturecanvas/venturecanvas-backend/internal/data/repos"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

type Repos struct {
	Projects repos.ProjectRepo
	Edges    repos.DependencyEdgeRepo
	Changes  repos.ChangeEventRepo
	Cascades repos.CascadeEventRepo
	Activity repos.ActivityRepo
	Entities repos.EntityStore
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Projects: repos.NewProjectRepo(db, log),
		Edges:    repos.NewDependencyEdgeRepo(db, log),
		Changes:  repos.NewChangeEventRepo(db, log),
		Cascades: repos.NewCascadeEventRepo(db, log),
		Activity: repos.NewActivityRepo(db, log),
		Entities: repos.NewEntityStore(db, log),
	}
}
