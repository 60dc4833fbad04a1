package main

import (
	"log"

	"printshop-backend/internal/bootstrap"
	"printshop-backend/internal/shared/config"
	"printshop-backend/internal/shared/server"
)

func main() {
	cfg := config.Load()
	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s (preview renderer: %s)", addr, app.RendererName)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
