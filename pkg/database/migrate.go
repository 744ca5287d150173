package database

import (
	"database/sql"
	"log"

	"codearena/pkg/database/migrations"

	"github.com/pressly/goose/v3"
)

// Migrate applies the embedded SQL migrations on startup.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(db, "."); err != nil {
		return err
	}
	log.Println("[DB] Schema up to date")
	return nil
}
