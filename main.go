package main

import (
	"flag"

	log "github.com/sirupsen/logrus"

	"github.com/Nigel-Baldwen/Ascension/internal/config"
	"github.com/Nigel-Baldwen/Ascension/internal/server"
	"github.com/Nigel-Baldwen/Ascension/internal/world"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML match config")
	flag.Parse()

	log.Println("=== STARTING ASCENSION ===")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config failed: %v", err)
	}
	log.SetLevel(cfg.Level())
	log.Printf("Config: map=%s size=%d players=%d round=%s reattempt=%s", cfg.Map, cfg.GridSize, cfg.Players, cfg.RoundDuration(), cfg.Policy())

	// Init world
	log.Println("Creating world...")
	gameWorld := world.New(world.OptionsFrom(cfg))
	if err := gameWorld.InitMap(cfg.Map); err != nil {
		log.Fatalf("Map %q failed: %v", cfg.Map, err)
	}
	log.Println("World created!")

	// Start broadcaster in background
	log.Println("Creating broadcaster...")
	broadcaster := world.NewBroadcaster(gameWorld, cfg.RoundDuration())
	log.Println("Starting broadcaster...")
	go broadcaster.Run()

	// Setup and start server
	log.Println("Setting up router...")
	r := server.SetupRouter(broadcaster, gameWorld)
	log.Printf("Server starting at port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Server failed:", err)
	}
}
