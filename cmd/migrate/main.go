// Файл: cmd/migrate/main.go
// Утилита миграций: `go run ./cmd/migrate up` / `down` / `status`.
package main

import (
	"database/sql"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"license-system/migrations"
	"license-system/pkg/config"
)

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg := config.New()

	db, err := sql.Open("pgx", cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("Ошибка подключения к БД: %v", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("Ошибка настройки goose: %v", err)
	}

	if err := goose.Run(command, db, "."); err != nil {
		log.Fatalf("Миграция завершилась ошибкой: %v", err)
	}
	log.Printf("✅ Команда goose %q выполнена", command)
}
