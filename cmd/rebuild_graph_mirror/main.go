package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/venturecanvas/venturecanvas-backend/internal/app"
	"github.com/venturecanvas/venturecanvas-backend/internal/data/graph"
	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	var projects idList
	var dryRun bool
	var limit int
	flag.Var(&projects, "project", "project_id to rebuild (repeatable; default all with edges)")
	flag.BoolVar(&dryRun, "dry-run", false, "print planned rebuilds without touching neo4j")
	flag.IntVar(&limit, "limit", 0, "limit number of projects processed")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	if application.Clients.Graph == nil {
		fmt.Println("graph mirror unavailable (NEO4J_URI missing)")
		os.Exit(1)
	}

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	var ids []uuid.UUID
	if len(projects) > 0 {
		for _, s := range projects {
			id, err := uuid.Parse(strings.TrimSpace(s))
			if err == nil && id != uuid.Nil {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			fmt.Println("no valid project_id values provided")
			return
		}
	} else {
		err = application.DB.WithContext(ctx).
			Model(&domain.DependencyEdge{}).
			Distinct("project_id").
			Pluck("project_id", &ids).Error
		if err != nil {
			fmt.Printf("list projects with edges: %v\n", err)
			os.Exit(1)
		}
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	rebuilt := 0
	for _, id := range ids {
		edges, err := application.Repos.Edges.ListByProject(dbc, id)
		if err != nil {
			fmt.Printf("load edges for project %s: %v\n", id.String(), err)
			continue
		}
		if dryRun {
			fmt.Printf("[dry-run] rebuild mirror project_id=%s (%d edges)\n", id.String(), len(edges))
			continue
		}
		if err := graph.ReplaceProjectGraph(ctx, application.Clients.Graph, application.Log, id, edges); err != nil {
			fmt.Printf("rebuild failed for project %s: %v\n", id.String(), err)
			continue
		}
		rebuilt++
		fmt.Printf("rebuilt mirror for project_id=%s (%d edges)\n", id.String(), len(edges))
	}

	fmt.Printf("done; rebuilt=%d\n", rebuilt)
}
