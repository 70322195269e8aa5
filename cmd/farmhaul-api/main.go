// README: Entry point; loads config, wires services, starts HTTP server and the pending-booking monitor.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"farmhaul/internal/config"
	httptransport "farmhaul/internal/http"
	"farmhaul/internal/infra"
	"farmhaul/internal/maps"
	"farmhaul/internal/metrics"
	"farmhaul/internal/modules/booking"
	"farmhaul/internal/modules/geo"
	"farmhaul/internal/modules/pricing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("FH_FIREBASE_PROJECT_ID is required")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	var redisClient *redis.Client
	if cfg.Dispatch.GeoBackend == "redis" || cfg.Events.UsesEventDriver("redis") {
		redisClient, err = infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			log.Fatal(err)
		}
		defer redisClient.Close()
	}

	sink, err := infra.NewEventSink(ctx, cfg.Events, infra.SinkDeps{
		Redis:           redisClient,
		FirebaseProject: cfg.Firebase.ProjectID,
		FirebaseCreds:   cfg.Firebase.CredentialsFile,
	})
	if err != nil {
		log.Fatalf("event sink: %v", err)
	}
	defer sink.Close()

	var index geo.Index = geo.NewMemoryIndex()
	if cfg.Dispatch.GeoBackend == "redis" {
		index = geo.NewRedisIndex(redisClient)
	}

	metrics.Register()

	bookingSvc := booking.NewService(booking.NewPostgresStore(dbPool), index, sink, booking.Options{
		Currency:        cfg.Dispatch.Currency,
		DefaultRadiusKm: cfg.Dispatch.DefaultRadiusKm,
		MaxRadiusKm:     cfg.Dispatch.MaxRadiusKm,
		MaxResults:      cfg.Dispatch.MaxResults,
		StaleAfter:      cfg.Dispatch.StaleAfter,
		MonitorInterval: cfg.Dispatch.MonitorInterval,
	})
	vehicles, requests, err := bookingSvc.RebuildIndex(ctx)
	if err != nil {
		log.Fatalf("geo index rebuild: %v", err)
	}
	log.Printf("geo index (%s) loaded %d vehicles and %d open requests", cfg.Dispatch.GeoBackend, vehicles, requests)

	if cfg.Maps.APIKey != "" {
		geocoder, err := maps.NewGeocoder(cfg.Maps.APIKey, cfg.Maps.Region)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		bookingSvc = bookingSvc.WithGeocoder(geocoder)
	} else {
		log.Printf("FH_MAPS_API_KEY not set; bookings must carry coordinates")
	}

	gin.SetMode(gin.ReleaseMode)
	router := httptransport.NewRouter(httptransport.RouterDeps{
		Booking:  bookingSvc,
		Pricing:  pricing.NewService(cfg.Dispatch.Currency),
		Verifier: verifier,
		Ready: func(c *gin.Context) error {
			if err := dbPool.Ping(c.Request.Context()); err != nil {
				return err
			}
			if redisClient != nil {
				return redisClient.Ping(c.Request.Context()).Err()
			}
			return nil
		},
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go bookingSvc.RunPendingMonitor(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("farmhaul api listening on %s (events=%v geo=%s)", cfg.HTTP.Addr, cfg.Events.Drivers, cfg.Dispatch.GeoBackend)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
