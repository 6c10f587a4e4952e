package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"

	"ATLAS-backend/internal/attendance"
	"ATLAS-backend/internal/history"
	"ATLAS-backend/internal/leave"
	"ATLAS-backend/internal/platform/auth"
	"ATLAS-backend/internal/platform/db"
	"ATLAS-backend/internal/resolution"
	"ATLAS-backend/internal/schedule"
	"ATLAS-backend/internal/window"
)

func main() {
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if cfg.Mode != "dev" && cfg.Mode != "release" {
		fmt.Println("Usage: go run main.go [dev|release]")
		return
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	grace := time.Duration(cfg.Engine.GraceMinutes) * time.Minute
	windowDuration := time.Duration(cfg.Engine.WindowMinutes) * time.Minute

	// services; the schedule service is the directory everything else reads
	scheduleSvc := schedule.NewService(conn)
	windowSvc := window.NewService(conn, scheduleSvc, windowDuration)
	attendanceSvc := attendance.NewService(conn, scheduleSvc, windowSvc, grace)
	leaveSvc := leave.NewService(conn, scheduleSvc)
	resolutionSvc := resolution.NewService(scheduleSvc, attendanceSvc, windowSvc, leaveSvc, grace)
	historySvc := history.NewService(conn, scheduleSvc, resolutionSvc)
	authSvc := auth.NewService(conn)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS for the local frontend only
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Location"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// /api/v1
	api := r.Group("/api/v1")
	auth.RegisterRoutes(api, authSvc)

	protected := api.Group("")
	protected.Use(auth.RequireAuth(auth.JWTSecret()))
	schedule.RegisterRoutes(protected, scheduleSvc)
	window.RegisterRoutes(protected, windowSvc)
	attendance.RegisterRoutes(protected, attendanceSvc)
	leave.RegisterRoutes(protected, leaveSvc)
	resolution.RegisterRoutes(protected, resolutionSvc)
	history.RegisterRoutes(protected, historySvc)

	rootCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	// expired-window sweep: windows never close themselves, this does it
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Engine.SweepSeconds) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				n, err := windowSvc.SweepExpired(rootCtx)
				if err != nil {
					log.Printf("[ERROR] window sweep: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("[INFO] swept %d expired windows", n)
				}
			}
		}
	}()

	// periodic archival of finished sessions into daily_stats
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Engine.AggregateMinutes) * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				n, err := historySvc.Run(rootCtx, time.Now().UTC())
				if err != nil {
					log.Printf("[ERROR] history aggregation: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("[INFO] archived %d sessions", n)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:    ":8443",
		Handler: r,
	}

	var certFile, keyFile string
	if mode == "dev" {
		certFile = fmt.Sprintf("config/tls/dev/%s", cfg.Certificate.Cert)
		keyFile = fmt.Sprintf("config/tls/dev/%s", cfg.Certificate.Key)
	} else {
		certFile = fmt.Sprintf("config/tls/release/%s", cfg.Certificate.Cert)
		keyFile = fmt.Sprintf("config/tls/release/%s", cfg.Certificate.Key)
	}

	go func() {
		log.Println("[INFO] listening on https://0.0.0.0:8443")
		if err := srv.ListenAndServeTLS(certFile, keyFile); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	stopWorkers()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
