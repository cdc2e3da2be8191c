package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mastermind064/RT06/pkg/config"
)

var cfg config.Config

func init() {
	// the SPA reads amounts as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.JWTSecret == "dev-insecure-secret-change" {
		log.Println("warning: JWT_SECRET not set, using development secret")
	}

	// `rt06 migrate` runs AutoMigrate then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		cfg.DBAutoMigrate = true
		initDB()
		fmt.Println("migration completed")
		return
	}

	initDB()

	r := gin.Default()
	setupRoutes(r)

	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
