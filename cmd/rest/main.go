package main

import (
	"context"
	"log"

	"ai-knowledgebase-be/internal/bootstrap"
	"ai-knowledgebase-be/internal/config"
	"ai-knowledgebase-be/internal/server"
	"ai-knowledgebase-be/internal/tracer"
	"ai-knowledgebase-be/pkg/database"
)

func main() {
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	cfg := config.Load()

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	container := bootstrap.NewContainer(gormDB, cfg)

	// The indexer runs in-process; jobs enqueue over the in-memory bus.
	go func() {
		log.Println("Background: Starting Indexer Service...")
		if err := container.IndexerService.Consume(context.Background()); err != nil {
			log.Printf("Background Indexer Error: %v", err)
		}
	}()

	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
