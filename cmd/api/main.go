package main

import (
	"context"
	"log"
	"os"

	"dealgate/auth"
	"dealgate/db"
	"dealgate/deal"
	"dealgate/engine"
	"dealgate/lifecycle"
	"dealgate/snapshot"
)

func main() {
	ctx := context.Background()

	connString := os.Getenv("DATABASE_URL")
	pool, err := db.NewPool(ctx, connString)
	if err != nil {
		log.Fatalf("bootstrap database pool: %v", err)
	}
	defer pool.Close()

	registry, err := engine.NewStandardRegistry()
	if err != nil {
		log.Fatalf("bootstrap evaluator registry: %v", err)
	}

	deals := deal.NewRepository(pool)
	snapshots := snapshot.NewStore(pool)
	transitions := lifecycle.NewService(pool)
	actors := auth.NewService(auth.NewRepository(pool), os.Getenv("JWT_SECRET"))

	log.Printf("dealgate ready: evaluators=%v deals=%v snapshots=%v lifecycle=%v auth=%v",
		registry.Order(), deals != nil, snapshots != nil, transitions != nil, actors != nil)
}
