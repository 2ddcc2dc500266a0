package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := InitializeApp()
	if err != nil {
		bootstrapLogger().Fatalf(ctx, "failed to initialise application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		stop()
		app.logger.Fatalf(ctx, "server failed: %v", err)
	}

	app.logger.Println(ctx, "server stopped")
}
