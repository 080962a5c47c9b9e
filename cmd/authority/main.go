package main

import (
	"log"

	"github.com/aussiebroadwan/labauth/internal/authority/app"
)

func main() {
	app.LoadDotEnv(".env")
	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
