package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"horizon.run/internal/engine/asset"
	"horizon.run/internal/engine/scene"
	"horizon.run/internal/engine/tuning"
	"horizon.run/internal/engine/world"
	persistlog "horizon.run/internal/persistence/log"
	"horizon.run/internal/persistence/templatecache"
	"horizon.run/internal/transport/resolver"
)

func main() {
	var (
		tuningPath  = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		templateDir = flag.String("templates", "./configs/templates", "local template directory (used when -resolver is empty)")
		resolverURL = flag.String("resolver", "", "ws url of the template resolver (e.g. ws://127.0.0.1:8091/v1/ws)")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		noCache     = flag.Bool("disable_cache", false, "disable the local template cache")
		withEvents  = flag.Bool("events", false, "write diagnostic event log")
		duration    = flag.Duration("duration", 0, "stop after this long (0 = run until signal)")
		speed       = flag.Float64("speed", 12, "viewer speed along the travel axis, units/sec")
		pprofAddr   = flag.String("pprof", "", "pprof listen address (empty to disable)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[runner] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := tuning.Load(*tuningPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", *tuningPath)
			cfg = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("tuning: %v", err)
	}

	runDir := filepath.Join(*dataDir, "runs", time.Now().UTC().Format("2006-01-02T15-04-05"))
	_ = os.MkdirAll(runDir, 0o755)

	// Template loader chain: resolver (or local dir), fronted by the sqlite
	// cache unless disabled.
	var loader asset.Loader
	if strings.TrimSpace(*resolverURL) != "" {
		wsClient := resolver.NewClient(*resolverURL)
		defer wsClient.Close()
		loader = wsClient
	} else {
		loader = asset.DirLoader{Dir: *templateDir}
	}
	if !*noCache {
		cache, err := templatecache.Open(filepath.Join(*dataDir, "templates.db"))
		if err != nil {
			logger.Fatalf("open template cache: %v", err)
		}
		defer cache.Close()
		loader = templatecache.Loader{Cache: cache, Next: loader}
	}

	reg := asset.NewRegistry(loader, asset.RetryConfig{
		MaxAttempts:  cfg.Resolver.MaxAttempts,
		BaseBackoff:  cfg.Resolver.BaseBackoff(),
		MaxBackoff:   cfg.Resolver.MaxBackoff(),
		FetchTimeout: cfg.Resolver.FetchTimeout(),
	}, logger)
	defer reg.Close()

	opts := world.Options{
		Host:   scene.NewRecorder(),
		Env:    scene.NewMemEnvironment(scene.EnvironmentParams{FogDensity: 0.004, AmbientTint: [3]float32{1, 1, 1}}),
		Logger: logger,
	}
	if *withEvents {
		ev := persistlog.NewEventLogger(runDir)
		defer ev.Close()
		opts.Events = ev
	}

	eng, err := world.New(cfg, reg, opts)
	if err != nil {
		logger.Fatalf("new engine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return eng.Run(ctx) })

	// Viewer driver: constant forward speed, the physics collaborator in a
	// real host.
	g.Go(func() error {
		interval := time.Second / time.Duration(cfg.TickRateHz)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		z := float32(0)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				z += float32(*speed) * float32(interval.Seconds())
				eng.ViewerInbox() <- mgl32.Vec3{0, 0, z}
			}
		}
	})

	if *pprofAddr != "" {
		g.Go(func() error { return servePprof(ctx, *pprofAddr) })
	}

	logger.Printf("engine up: seed=%d tiles=%d+%d segment=%.0f", cfg.Seed, cfg.TilesAhead, cfg.TilesBehind, cfg.SegmentLength)
	err = g.Wait()
	st := eng.Stats()
	logger.Printf("run over: ticks=%d distance=%.0f spawned=%d retired=%d obstacles=%d collectibles=%d difficulty=%.2f",
		st.Ticks, st.Distance, st.SegmentsSpawned, st.SegmentsRetired, st.ObstaclesPlaced, st.CollectiblesPlaced, eng.Difficulty())
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.Fatalf("run: %v", err)
	}
}

func servePprof(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
