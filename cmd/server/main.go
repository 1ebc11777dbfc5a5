package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gridpath/internal/api"
	"gridpath/internal/config"
	"gridpath/internal/sim"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🧭 ================================")
	log.Println("🧭  GRIDPATH - SIMULATION SERVER")
	log.Println("🧭 ================================")

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	simCfg, err := sim.ConfigFromApp(appConfig)
	if err != nil {
		log.Fatalf("❌ Invalid simulation config: %v", err)
	}

	engine, err := sim.NewEngine(simCfg)
	if err != nil {
		log.Fatalf("❌ Failed to build engine: %v", err)
	}
	engine.SetCallbacks(api.RecordTick, api.RecordSearch)

	log.Printf("🗺️ Grid: %dx%d cells at %dpx, %d obstacles", simCfg.Cols, simCfg.Rows, appConfig.Grid.Spacing, len(simCfg.Obstacles))
	log.Printf("🎮 Config: %d TPS, mode %s, %d steps/tick, agent speed %.1f",
		simCfg.TickRate, simCfg.Mode, simCfg.StepsPerTick, simCfg.Speed)

	if path := appConfig.Sim.EventLogPath; path != "" {
		if err := engine.StartEventLog(path); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		} else {
			log.Printf("📝 Event log: %s", path)
		}
	}

	if appConfig.Server.DebugServer {
		debugCfg := api.ObservabilityFromEnv(api.DefaultObservabilityConfig())
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	if hosts := os.Getenv("ALLOWED_ORIGIN_HOSTS"); hosts != "" {
		for _, h := range strings.Split(hosts, ",") {
			if h = strings.TrimSpace(h); h != "" {
				api.AllowedHosts = append(api.AllowedHosts, h)
			}
		}
	}

	server := api.NewServer(engine, api.ServerOptions{
		BroadcastInterval: appConfig.Server.BroadcastInterval,
		StaticFilesDir:    appConfig.Server.StaticDir,
	})

	engine.Start()

	statsDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		el := engine.EventLog()
		for {
			select {
			case <-ticker.C:
				api.UpdateEventLogStats(el.GetTotalCount(), el.GetDroppedCount())
			case <-statsDone:
				return
			}
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%d", appConfig.Server.Port)
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Printf("⚠️ Server shutdown: %v", err)
	}
	close(statsDone)
	engine.Stop()
	engine.StopEventLog()
	log.Println("👋 Goodbye!")
}
