package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/rebano/rebano-go/internal/config"
	"github.com/rebano/rebano-go/internal/crypto"
	"github.com/rebano/rebano-go/internal/handler"
	"github.com/rebano/rebano-go/internal/middleware"
	"github.com/rebano/rebano-go/internal/repository"
	"github.com/rebano/rebano-go/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewDB(cfg.DatabaseDSN)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db); err != nil {
		slog.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	store := repository.NewStore(db)
	authService := service.NewAuthService(store.Users(), crypto.NewHasher(crypto.DefaultHashParams()), cfg.JWTSecret, cfg.JWTExpiry)
	authHandler := handler.NewAuthHandler(authService)

	inventory := service.NewInventoryService(store)
	animals := handler.NewRecordHandler(service.NewAnimalService(store), handler.Bare)
	supplies := handler.NewRecordHandler(inventory, handler.Bare)
	sales := handler.NewRecordHandler(service.NewSaleService(store), handler.Keyed("sales"))
	purchases := handler.NewRecordHandler(service.NewPurchaseService(store), handler.Keyed("data"))
	feeds := handler.NewRecordHandler(service.NewFeedService(store), handler.Nested("feeds"))
	stock := handler.NewStockHandler(inventory)
	dashboard := handler.NewDashboardHandler(service.NewDashboardService(store))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(ctx, cfg.AuthRate, cfg.AuthBurst,
			middleware.WithRejectHandler(http.HandlerFunc(handler.TooManyAttempts))))
		r.Post("/auth/v1/accounts/signUp", authHandler.HandleSignUp)
		r.Post("/auth/v1/accounts/signInWithPassword", authHandler.HandleSignIn)
		r.Post("/auth/v1/accounts/lookup", authHandler.HandleLookup)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/create-admin", authHandler.HandleCreateAdmin)
		r.Post("/auth/verify", authHandler.HandleVerify)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(cfg.JWTSecret))
			r.Get("/dashboard", dashboard.HandleSummary)
			r.Route("/animals", animals.Routes)
			r.Route("/inventory", func(r chi.Router) {
				supplies.Routes(r)
				r.Put("/{id}/stock", stock.HandleAdjust)
			})
			r.Route("/sales", sales.Routes)
			r.Route("/purchases", purchases.Routes)
			r.Route("/feeds", feeds.Routes)
		})
	})

	r.Handle("/*", handler.Shell(os.DirFS(cfg.StaticDir)))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
