package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"gridpath/internal/config"
	"gridpath/internal/sim"
	"gridpath/internal/tui"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	}

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

	if path := appConfig.Sim.EventLogPath; path != "" {
		if err := engine.StartEventLog(path); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		}
		defer engine.StopEventLog()
	}

	// Audio is optional; the view runs without it.
	var notice string
	tone, err := tui.NewTone()
	if err != nil {
		notice = "audio off"
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("❌ Terminal unavailable: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("❌ Terminal init failed: %v", err)
	}
	screen.EnableMouse()
	screen.HideCursor()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := tui.New(screen, engine, tui.Options{
		TickRate: simCfg.TickRate,
		Tone:     tone,
		Notice:   notice,
	})
	err = app.Run(ctx)
	screen.Fini()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("⚠️ %v", err)
	}
}
