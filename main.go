package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"DamOpt/internal/auth"
	"DamOpt/internal/calc/dam"
	"DamOpt/internal/calc/history"
	"DamOpt/internal/calc/premium/batch"
	"DamOpt/internal/calc/premium/importer"
	"DamOpt/internal/calc/report"
	"DamOpt/internal/config"
	"DamOpt/internal/logging"
	"DamOpt/internal/repo"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

var wg sync.WaitGroup

func CORS(mux *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

// HandleList registers every API route on mux.
func HandleList(mux *mux.Router, cfg config.Config, st repo.Store) {
	authEnv := &auth.Authenv{JWTkey: []byte(cfg.TokenKey), Users: st, Secure: cfg.TLSCert != ""}
	limiter := auth.NewIPRateLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)

	api := mux.PathPrefix("/api").Subrouter()
	api.Use(limiter.LimitMiddleware)

	api.HandleFunc("/login", authEnv.AuthHandler).Methods("POST")
	api.HandleFunc("/register", authEnv.RegisterHandler).Methods("POST")

	secureApi := api.PathPrefix("/dam").Subrouter()
	secureApi.Use(authEnv.AuthMiddleware)

	opts := dam.DefaultOptions()
	runner := &batch.Runner{Options: opts, Workers: cfg.Workers, Timeout: cfg.RunTimeout, Store: st}

	damH := &dam.Handler{Store: st, Options: opts, Timeout: cfg.RunTimeout}
	historyH := &history.Handler{Store: st}
	reportH := &report.Handler{Store: st}
	batchH := &batch.Handler{Runner: runner}
	importH := &importer.Handler{Runner: runner}

	secureApi.HandleFunc("/optimize", damH.Optimize).Methods("POST")
	secureApi.HandleFunc("/evaluate", damH.Evaluate).Methods("POST")

	secureApi.HandleFunc("/results", historyH.List).Methods("GET")
	secureApi.HandleFunc("/results/{id:[0-9]+}", historyH.Get).Methods("GET")
	secureApi.HandleFunc("/results/{id:[0-9]+}", historyH.Delete).Methods("DELETE")

	secureApi.HandleFunc("/results/{id:[0-9]+}/report.{format}", reportH.Download).Methods("GET")
	secureApi.HandleFunc("/report/{format}", reportH.Generate).Methods("POST")
	secureApi.HandleFunc("/reports/capabilities", reportH.Capabilities).Methods("GET")

	secureApi.HandleFunc("/batch", batchH.Optimize).Methods("POST")
	secureApi.HandleFunc("/import", importH.Import).Methods("POST")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	log := logging.New("server")
	if cfg.TokenKey == "" {
		log.Error("TOKEN_KEY environment variable is not set")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := repo.NewStore(cfg.Store, cfg.DSN())
	if err != nil {
		log.Error("store", "err", err)
		os.Exit(1)
	}
	if err := st.Init(ctx); err != nil {
		log.Error("init store", "backend", cfg.Store, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	mux := mux.NewRouter()
	HandleList(mux, cfg, st)
	handler := CORS(mux)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("starting server", "addr", cfg.Addr, "store", cfg.Store, "tls", cfg.TLSCert != "")
		var err error
		if cfg.TLSCert != "" && cfg.TLSKey != "" {
			err = server.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, closing active connections")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "err", err)
	}
	wg.Wait()
	log.Info("server stopped")
}
