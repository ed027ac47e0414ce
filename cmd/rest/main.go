package main

import (
	"log"

	"ai-chat-gateway/internal/bootstrap"
	"ai-chat-gateway/internal/config"
	"ai-chat-gateway/internal/server"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if cfg.App.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET must be set")
	}

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.Logger.Sync()

	// 3. Initialize Server
	srv := server.New(cfg, container)

	// 4. Run Server
	log.Fatal(srv.Run())
}
