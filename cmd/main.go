package main

import (
	"context"
	"fmt"
	"os"

	"github.com/venturecanvas/venturecanvas-backend/internal/app"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/shutdown"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a.Start()

	if err := a.Run(ctx, ":"+a.Cfg.Port); err != nil {
		fmt.Printf("server exited: %v\n", err)
		os.Exit(1)
	}
}
