package main

import (
	"log"

	"game-exploration-be/internal/config"
	"game-exploration-be/internal/model"
	"game-exploration-be/pkg/database"

	"gorm.io/gorm"
)

// Creates or updates the exploration tables.
func main() {
	cfg := config.Load()

	db, err := database.NewGormDB(database.GormConfig{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.Connection,
		Quiet:  true,
	})
	if err != nil {
		log.Fatalf("connecting %s database: %v", cfg.Database.Driver, err)
	}

	for _, m := range model.All() {
		if err := db.AutoMigrate(m); err != nil {
			log.Fatalf("migrating %s: %v", tableName(db, m), err)
		}
		log.Printf("migrated %s", tableName(db, m))
	}
}

func tableName(db *gorm.DB, m interface{}) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(m); err != nil {
		return "?"
	}
	return stmt.Schema.Table
}
