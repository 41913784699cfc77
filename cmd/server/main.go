package main

import (
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"stazhbot/internal/config"
	"stazhbot/internal/database"
	"stazhbot/internal/handlers"
	"stazhbot/internal/service"
)

func main() {
	log := logrus.New()

	if err := godotenv.Load(); err != nil {
		log.Warn("файл .env не найден, используются системные переменные")
	}
	cfg := config.Load()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatalf("база данных: %v", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("миграции: %v", err)
	}

	svc := service.New(db, log)
	if err := svc.SeedAdmin(cfg.AdminName, cfg.AdminEmail); err != nil {
		log.Fatalf("создание админа: %v", err)
	}

	gin.SetMode(cfg.GinMode)
	r := gin.Default()
	handlers.New(svc, log).RegisterRoutes(r)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("сервер: %v", err)
	}
}
