package main

import (
	"log"
	"os"

	"gorm.io/gorm"

	"github.com/mastermind064/RT06/pkg/database"
)

var db *gorm.DB

func initDB() {
	var err error
	db, err = database.Open(cfg)
	if err != nil {
		log.Fatal("failed to open database: ", err)
	}
	ensureUploadBase()
}

// ensureUploadBase creates the base uploads directory and the default avatar folder.
func ensureUploadBase() {
	base := uploadBaseDir()
	if err := os.MkdirAll(base+"/default", 0o755); err != nil {
		log.Printf("failed to create upload base dir %s: %v", base, err)
	}
}

// uploadBaseDir returns the base directory for local uploads (UPLOAD_BASE).
func uploadBaseDir() string {
	if cfg.UploadBase != "" {
		return cfg.UploadBase
	}
	return "uploads"
}
