package main

import (
	"context"
	"log"

	"github.com/whisper-money/whisper-money-sub001/internal/client/cli"
	"github.com/whisper-money/whisper-money-sub001/internal/client/config"
)

func main() {
	ctx := context.Background()

	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
