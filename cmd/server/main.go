package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"holoui.ai/internal/menu"
	"holoui.ai/internal/menu/def"
	"holoui.ai/internal/persistence/indexdb"
	persistlog "holoui.ai/internal/persistence/log"
	"holoui.ai/internal/render"
	"holoui.ai/internal/sim/catalogs"
	"holoui.ai/internal/sim/tuning"
	"holoui.ai/internal/sim/voxel"
	"holoui.ai/internal/telemetry"
	"holoui.ai/internal/transport/bridge"
)

func main() {
	var (
		addr         = flag.String("addr", ":8080", "http listen address")
		configDir    = flag.String("configs", "./configs", "config directory")
		menusDir     = flag.String("menus", "", "menu definition directory (default: <configs>/menus)")
		settingsPath = flag.String("settings", "", "path to settings.yaml (default: <configs>/settings.yaml)")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		disableDB    = flag.Bool("disable_db", false, "disable the sqlite last-session store")
		disableAudit = flag.Bool("disable_audit", false, "disable the session audit log")
		logLevel     = flag.String("log_level", "info", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	logger := newLogger(*logLevel)

	cats, err := loadCatalogs(*configDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("load catalogs")
	}

	sp := strings.TrimSpace(*settingsPath)
	if sp == "" {
		sp = filepath.Join(*configDir, "settings.yaml")
	}
	settings, err := tuning.Load(sp)
	if err != nil {
		logger.Fatal().Err(err).Msg("load settings")
	}

	md := strings.TrimSpace(*menusDir)
	if md == "" {
		md = filepath.Join(*configDir, "menus")
	}
	menus, loadErr := def.LoadDir(md)
	if loadErr != nil {
		if menus == nil {
			logger.Fatal().Err(loadErr).Str("dir", md).Msg("load menus")
		}
		logger.Warn().Err(loadErr).Strs("failed", def.FailedIDs(loadErr)).Msg("some menus failed to load")
	}
	logger.Info().Int("menus", len(menus)).Str("dir", md).Msg("menus loaded")

	var store *indexdb.SQLiteStore
	if !*disableDB {
		store, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "sessions.sqlite"), logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("open session store")
		}
		defer store.Close()
		store.UpsertMenus(menus)
	}

	var audit menu.AuditSinks
	var auditLog *persistlog.SessionLog
	if !*disableAudit {
		auditLog = persistlog.NewSessionLog(*dataDir, 0, logger)
		defer auditLog.Close()
		audit = append(audit, auditLog)
	}
	if store != nil {
		audit = append(audit, store)
	}

	grid := voxel.NewGrid(&cats.Blocks)
	srv := bridge.NewServer(bridge.Config{
		Grid:     grid,
		Catalogs: cats,
		Settings: settings,
		Logger:   logger,
	})
	env := &menu.Env{
		Renderer:     render.NewRegistry(srv, logger),
		Actions:      render.NewActions(srv, logger),
		Placeholders: menu.HostPlaceholders{},
		Items:        &cats.Items,
		Blocks:       &cats.Blocks,
		World:        grid,
		Settings:     settings,
		Log:          logger.With().Str("component", "menu").Logger(),
	}
	meters, err := telemetry.New(context.Background(), "holoui-server", "holoui")
	if err != nil {
		logger.Fatal().Err(err).Msg("metrics provider")
	}
	meters.SetGlobal()
	defer func() {
		if err := meters.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("metrics shutdown")
		}
	}()

	opts := menu.Options{Env: env, Menus: menus, Audit: audit, Meters: meters.MeterProvider()}
	if store != nil {
		opts.Store = store
	}
	mgr, err := menu.NewManager(opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("menu manager")
	}
	srv.Attach(mgr)

	settings.OnChange(func(st tuning.Settings) {
		logger.Info().Float64("ui_scale", st.UIScale).Bool("preview", st.Preview.Enabled).Msg("settings reloaded")
		mgr.RefreshVisuals()
	})
	settings.Watch(func(err error) {
		logger.Error().Err(err).Msg("settings reload rejected")
	})

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		err := def.Watch(ctx, md, 250*time.Millisecond, func(set def.Set, err error) {
			if err != nil {
				logger.Warn().Err(err).Strs("failed", def.FailedIDs(err)).Msg("menu reload")
			}
			mgr.Reload(set, err)
			if store != nil && set != nil {
				store.UpsertMenus(set)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("menu watcher stopped")
		}
	}()

	tickDone := make(chan struct{})
	go func() {
		defer close(tickDone)
		if err := mgr.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("tick loop stopped")
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		fmt.Fprintf(rw, "# HELP holoui_observers Observers tracked by the menu manager.\n")
		fmt.Fprintf(rw, "# TYPE holoui_observers gauge\n")
		fmt.Fprintf(rw, "holoui_observers %d\n", mgr.Len())

		fmt.Fprintf(rw, "# HELP holoui_bridge_observers Observers reported by connected bridges.\n")
		fmt.Fprintf(rw, "# TYPE holoui_bridge_observers gauge\n")
		fmt.Fprintf(rw, "holoui_bridge_observers %d\n", srv.Directory().Len())

		fmt.Fprintf(rw, "# HELP holoui_bridge_dropped_total Outbound messages dropped on full bridge queues.\n")
		fmt.Fprintf(rw, "# TYPE holoui_bridge_dropped_total counter\n")
		fmt.Fprintf(rw, "holoui_bridge_dropped_total %d\n", srv.Dropped())

		writeStoreMetrics(rw, store)
		writeAuditMetrics(rw, auditLog)
		if err := meters.WritePrometheus(r.Context(), rw); err != nil {
			logger.Warn().Err(err).Msg("collect otel metrics")
		}
	})

	enableAdminHTTP := envBool("HOLOUI_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("HOLOUI_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		mux.HandleFunc("/admin/v1/menus", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(map[string]any{"menus": mgr.MenuIDs(), "observers": mgr.Len()})
		})
		mux.HandleFunc("/admin/v1/history", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			if store == nil {
				http.Error(rw, "session store disabled", http.StatusServiceUnavailable)
				return
			}
			evs, err := store.History(r.Context(), r.URL.Query().Get("observer"), 50)
			if err != nil {
				http.Error(rw, err.Error(), http.StatusInternalServerError)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(evs)
		})
	} else {
		logger.Info().Msg("admin endpoints disabled (HOLOUI_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/bridge", srv.Handler())

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = httpSrv.Shutdown(ctx2)
	}()

	logger.Info().Str("addr", *addr).Msg("listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("ListenAndServe")
	}
	// Sessions are closed by the tick loop on shutdown; let their events reach
	// the store and audit log before those are closed.
	<-tickDone
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05.000"}
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("svc", "server").Logger()
}

// loadCatalogs falls back to the built-in catalogs when configDir has none.
func loadCatalogs(configDir string, logger zerolog.Logger) (*catalogs.Catalogs, error) {
	if _, err := os.Stat(filepath.Join(configDir, "blocks.json")); os.IsNotExist(err) {
		logger.Warn().Str("dir", configDir).Msg("no catalogs found, using built-in defaults")
		return catalogs.Defaults(), nil
	}
	return catalogs.Load(configDir)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(name string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func writeStoreMetrics(rw http.ResponseWriter, store *indexdb.SQLiteStore) {
	if store == nil {
		return
	}
	s := store.Stats()
	fmt.Fprintf(rw, "# HELP holoui_store_queue_depth Session store write queue depth.\n")
	fmt.Fprintf(rw, "# TYPE holoui_store_queue_depth gauge\n")
	fmt.Fprintf(rw, "holoui_store_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP holoui_store_dropped_total Session store writes dropped on a full queue.\n")
	fmt.Fprintf(rw, "# TYPE holoui_store_dropped_total counter\n")
	fmt.Fprintf(rw, "holoui_store_dropped_total{kind=%q} %d\n", "last", s.DropLastTotal)
	fmt.Fprintf(rw, "holoui_store_dropped_total{kind=%q} %d\n", "event", s.DropEventTotal)
	fmt.Fprintf(rw, "holoui_store_dropped_total{kind=%q} %d\n", "menu", s.DropMenuTotal)

	fmt.Fprintf(rw, "# HELP holoui_store_write_failed_total Failed session store writes.\n")
	fmt.Fprintf(rw, "# TYPE holoui_store_write_failed_total counter\n")
	fmt.Fprintf(rw, "holoui_store_write_failed_total %d\n", s.WriteFailedTotal)
}

func writeAuditMetrics(rw http.ResponseWriter, l *persistlog.SessionLog) {
	if l == nil {
		return
	}
	s := l.Stats()
	fmt.Fprintf(rw, "# HELP holoui_audit_queue_depth Audit log queue depth.\n")
	fmt.Fprintf(rw, "# TYPE holoui_audit_queue_depth gauge\n")
	fmt.Fprintf(rw, "holoui_audit_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP holoui_audit_dropped_total Audit entries dropped on a full queue.\n")
	fmt.Fprintf(rw, "# TYPE holoui_audit_dropped_total counter\n")
	fmt.Fprintf(rw, "holoui_audit_dropped_total %d\n", s.DroppedTotal)

	fmt.Fprintf(rw, "# HELP holoui_audit_write_failures_total Audit entries that failed to write.\n")
	fmt.Fprintf(rw, "# TYPE holoui_audit_write_failures_total counter\n")
	fmt.Fprintf(rw, "holoui_audit_write_failures_total %d\n", s.WriteFailures)
}
