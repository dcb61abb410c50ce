// README: Entry point; loads config, wires the rider map session and its infra, starts the HTTP server.
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

	"github.com/redis/go-redis/v9"

	"ridemap/internal/config"
	httptransport "ridemap/internal/http"
	"ridemap/internal/infra"
	"ridemap/internal/maps"
	"ridemap/internal/modules/fleet"
	"ridemap/internal/modules/location"
	"ridemap/internal/session"
)

const shutdownTimeout = 5 * time.Second

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		log.Fatalf("location provider: %v", err)
	}

	var seeds []fleet.Seed
	if cfg.Fleet.SeedFile != "" {
		if seeds, err = fleet.LoadSeeds(cfg.Fleet.SeedFile); err != nil {
			log.Fatal(err)
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = infra.NewRedis(cfg.Redis.Addr)
		defer redisClient.Close()
		if err := infra.PingRedis(ctx, redisClient); err != nil {
			log.Printf("fleet mirror unavailable, continuing without it: %v", err)
			redisClient = nil
		}
	}

	var geocoder maps.Geocoder
	if cfg.Maps.APIKey != "" {
		g, err := maps.NewGeocodeService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("geocoder: %v", err)
		}
		geocoder = g
	}

	sess, err := session.New(session.Deps{
		Config:   cfg,
		Provider: provider,
		Seeds:    seeds,
		Redis:    redisClient,
		Geocoder: geocoder,
	})
	if err != nil {
		log.Fatal(err)
	}
	sess.Start(ctx)
	defer sess.Close()

	handler := httptransport.NewServer(httptransport.ServerDeps{Session: sess})
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
	}()

	log.Printf("ridemap-api listening on %s (session %s, location source %s)", cfg.HTTP.Addr, sess.ID(), cfg.Location.Source)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func newProvider(ctx context.Context, cfg config.Config) (location.Provider, error) {
	switch cfg.Location.Source {
	case config.LocationSourceFirebase:
		client, err := infra.NewFirebaseDatabase(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile, cfg.Firebase.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return location.NewFirebaseProvider(client, cfg.Location.RiderID), nil
	default:
		return location.NewSimulatedProvider(cfg.Location.Start, cfg.Location.SimulatedGrant), nil
	}
}
