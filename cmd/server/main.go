package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/liushun89/zooterrain/internal/config"
	"github.com/liushun89/zooterrain/internal/observer"
	"github.com/liushun89/zooterrain/internal/ws"
	"github.com/liushun89/zooterrain/internal/zkc"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	zkServers := flag.String("zk", "", "Override ZooKeeper servers (comma-separated)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *zkServers != "" {
		cfg.ZooKeeper.Servers = strings.Split(*zkServers, ",")
	}

	dial := func(sink zkc.Sink) (zkc.Conn, error) {
		log.Printf("[zk] connecting to %v", cfg.ZooKeeper.Servers)
		client, err := zkc.Dial(cfg.ZooKeeper.Servers, cfg.ZooKeeper.SessionTimeout, sink)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	obs := observer.New(dial, cfg.Tree.Root, cfg.Tree.Depth)
	if err := obs.Start(); err != nil {
		log.Fatalf("Observer start failed: %v", err)
	}

	hub := ws.NewHub(obs, cfg.Tree.Root, cfg.Tree.Depth, cfg.WS.SendBuffer)
	server := ws.NewServer(cfg, obs, hub)

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		obs.Stop()
		os.Exit(0)
	}()

	if err := ws.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
