package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/saraspatika/absensi_backend/config"
	"github.com/saraspatika/absensi_backend/db"
	"github.com/saraspatika/absensi_backend/internal/routes"
	"github.com/saraspatika/absensi_backend/internal/services/live"
	"github.com/saraspatika/absensi_backend/internal/services/storage"
)

func main() {
	cfg := config.NewConfig()
	database := db.InitDB(cfg.DatabaseDSN)
	defer database.Close()

	redisClient := config.NewRedisClient()
	defer redisClient.Close()

	ctx := context.Background()
	store, err := storage.NewS3Store(ctx, cfg.StorageBucket)
	if err != nil {
		log.Fatalf("Failed to init object storage: %v", err)
	}

	hub := live.NewHub()
	go live.Bridge(ctx, redisClient, hub)

	router := routes.Setup(cfg, database, redisClient, store, hub)

	serverAddress := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("Server starting on %s", serverAddress)
	log.Fatal(http.ListenAndServe(serverAddress, router))
}
