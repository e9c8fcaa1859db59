package main

import (
	"log"
	"net/http"

	_ "sickfits/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"sickfits/internal/auth"
	"sickfits/internal/cache"
	"sickfits/internal/config"
	"sickfits/internal/db"
	"sickfits/internal/handler"
	"sickfits/internal/mail"
	"sickfits/internal/model"
	"sickfits/internal/repository"
	"sickfits/internal/router"
	"sickfits/internal/service"
)

// @title Sick Fits API
// @version 1.0
// @description Storefront API with authentication, password reset, and catalog items.
// @host localhost:8080
// @BasePath /api
// @schemes http
func main() {
	cfg := config.Load()

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Item{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	mailer, err := mail.NewSMTPSender(cfg.Mail)
	if err != nil {
		log.Fatalf("mailer init: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	itemRepo := repository.NewItemRepository(gormDB)

	// Initialize auth components
	hasher := auth.NewBcryptHasher()
	jwtService := auth.NewJWTService(cfg.AppSecret)
	cookies := auth.NewCookieManager()

	// Initialize services
	authService := service.NewAuthService(userRepo, hasher, jwtService, mailer, cfg.FrontendURL)
	itemService := service.NewItemService(itemRepo, cacheClient)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, cookies)
	itemHandler := handler.NewItemHandler(itemService, authService)

	// Register routes
	router.Register(e, cfg, authHandler, itemHandler)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
