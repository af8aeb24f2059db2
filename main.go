package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"laundry-api/config"
	"laundry-api/core"
	"laundry-api/handlers"
	"laundry-api/metrics"
	"laundry-api/middleware"
	"laundry-api/routes"
	"laundry-api/statemachine"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	log := config.NewLogger(cfg)
	gin.SetMode(cfg.Server.GinMode)

	policy, err := statemachine.ParsePolicy(cfg.Orders.TransitionPolicy)
	if err != nil {
		log.WithError(err).Fatal("invalid ORDER_TRANSITION_POLICY")
	}

	// Initialize database
	db, err := config.OpenDB(cfg.DB, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}

	rec := metrics.New()
	auth := middleware.NewAuth(cfg.JWT.Secret, cfg.JWT.Expiration)
	users := core.NewUserService(db, log)

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		admin, err := users.EnsureAdmin(context.Background(), cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			log.WithError(err).Fatal("failed to provision admin account")
		}
		log.WithField("email", admin.Email).Info("admin account ready")
	}

	h := handlers.New(handlers.Deps{
		DB:      db,
		Auth:    auth,
		Users:   users,
		Shops:   core.NewShopService(db, log),
		Catalog: core.NewCatalogService(db, log),
		Orders:  core.NewOrderService(db, statemachine.New(policy), rec, log),
		Log:     log,
	})

	r := routes.NewEngine(routes.Options{
		Handler:     h,
		Auth:        auth,
		Metrics:     rec,
		Log:         log,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":              cfg.Server.Port,
			"transition_policy": policy,
		}).Info("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.WithError(err).Error("close database")
		}
	}
	log.Info("server stopped")
}
