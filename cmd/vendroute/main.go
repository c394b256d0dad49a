package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"vendroute/config"
	"vendroute/engine"
	"vendroute/flexcache"
	"vendroute/messaging"
	"vendroute/metrics"
	"vendroute/store"
	"vendroute/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "vendroute.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("vendroute", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("vendroute: database open (%s)", cfg.Database.Driver)

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	var redisStore *flexcache.RedisStore
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("vendroute: redis not available (%v), reading stops from SQL", err)
	} else {
		log.Printf("vendroute: redis connected (%s)", cfg.Redis.Address)
		redisStore = flexcache.NewRedisStore(redisClient, cfg.Redis.TTL)
	}
	cancel()

	flexCache := flexcache.NewManager(db, redisStore)
	if err := flexCache.SyncFromSQL(); err != nil {
		log.Printf("vendroute: flex cache sync from SQL: %v", err)
	}

	// Messaging client
	var msgClient *messaging.Client
	if cfg.Messaging.Backend != "" && cfg.Messaging.Backend != "none" {
		msgClient = messaging.NewClient(&cfg.Messaging)
		if err := msgClient.Connect(); err != nil {
			log.Printf("vendroute: messaging connect failed (%v)", err)
		} else {
			log.Printf("vendroute: messaging connected (%s)", cfg.Messaging.Backend)
		}
		defer msgClient.Close()
	}

	// Engine
	eng := engine.New(engine.Config{
		AppConfig: cfg,
		DB:        db,
		FlexCache: flexCache,
		MsgClient: msgClient,
	})
	eng.Start()
	defer eng.Stop()

	// Outbox drainer (change feed to other instances)
	if msgClient != nil {
		drainer := messaging.NewOutboxDrainer(db, msgClient, cfg.Messaging.OutboxDrainInterval)
		drainer.Start()
		defer drainer.Stop()
	}

	m := metrics.New()
	m.TrackSessions(eng.Sessions().Count)
	m.TrackOutbox(func() int {
		n, err := db.CountPendingOutbox()
		if err != nil {
			log.Printf("vendroute: count outbox: %v", err)
		}
		return n
	})

	// Web server
	handler, stopWeb := www.NewRouter(eng, m)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("vendroute: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("vendroute: ready")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("vendroute: shutting down...")
	stopWeb()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("vendroute: stopped")
}
