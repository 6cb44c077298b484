package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"staffhub.org/internal/alerts"
	"staffhub.org/internal/attendance"
	"staffhub.org/internal/auth"
	"staffhub.org/internal/config"
	"staffhub.org/internal/httpapi"
	"staffhub.org/internal/mail"
	"staffhub.org/internal/obs"
	"staffhub.org/internal/store/memory"
	"staffhub.org/internal/store/pg"
	"staffhub.org/internal/tasks"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}

	// Stores: PostgreSQL when a DSN is configured, in-memory otherwise.
	var (
		authStore       auth.Store
		attendanceStore attendance.Store
		taskStore       tasks.Store
		alertStore      alerts.Store
		readyProbe      httpapi.ReadyProbe
		closeStore      = func() {}
	)
	if cfg.PostgresDSN != "" {
		store, err := pg.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		authStore = store
		attendanceStore = store.Attendance()
		taskStore = store.Tasks()
		alertStore = store.Alerts()
		readyProbe = httpapi.ReadyProbe{DB: store.DB()}
		closeStore = func() { _ = store.Close() }
	} else {
		log.Println("STAFFHUB_PG_DSN not set, using in-memory store")
		store := memory.New()
		authStore = store
		attendanceStore = store.Attendance()
		taskStore = store.Tasks()
		alertStore = store.Alerts()
	}

	authOpts := []auth.ServiceOption{
		auth.WithRefreshTTL(cfg.RefreshTTL),
		auth.WithOTPTTL(cfg.OTPTTL),
		auth.WithProduction(cfg.Production()),
		auth.WithWarnFunc(obs.Warn),
	}
	if cfg.MailHost != "" {
		mailer, err := mail.New(mail.Config{
			Host:     cfg.MailHost,
			Port:     cfg.MailPort,
			Username: cfg.MailUser,
			Password: cfg.MailPass,
			From:     cfg.MailFrom,
		})
		if err != nil {
			log.Fatalf("mail: %v", err)
		}
		authOpts = append(authOpts, auth.WithMailer(mailer))
	}
	if cfg.GoogleClientID != "" {
		authOpts = append(authOpts, auth.WithGoogleVerifier(&auth.GoogleTokenVerifier{
			ClientID: cfg.GoogleClientID,
		}))
	}

	authSvc, err := auth.NewService(authStore, issuer, authOpts...)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	attendanceSvc, err := attendance.NewService(attendanceStore, authStore.Users())
	if err != nil {
		log.Fatalf("attendance service: %v", err)
	}
	taskSvc, err := tasks.NewService(taskStore, authStore.Users())
	if err != nil {
		log.Fatalf("task service: %v", err)
	}
	alertSvc, err := alerts.NewService(alertStore)
	if err != nil {
		log.Fatalf("alert service: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		Auth:       authSvc,
		Tokens:     issuer,
		Attendance: attendanceSvc,
		Tasks:      taskSvc,
		Alerts:     alertSvc,
		ReadyProbe: readyProbe,
		Version:    version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting staffhub-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	api.Close()
	closeStore()
	log.Println("Stopped")
}
