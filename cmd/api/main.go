package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/api/handlers"
	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/logging"
	"github.com/progate-hackathon-strawberry-flavor/BLOCKBLAST-backend/internal/services/blockblast"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, !cfg.IsProduction())

	var (
		prefs   database.PreferenceRepository
		results database.ResultRepository
	)
	if cfg.DatabaseURL != "" {
		dbService, err := database.NewDatabaseService(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("データベースの初期化に失敗しました")
		}
		defer dbService.Close()
		prefs = database.NewPreferenceRepository(dbService.DB)
		results = database.NewResultRepository(dbService.DB)
	} else {
		log.Warn().Msg("DATABASE_URL が未設定のため、設定と結果は保存されません")
	}

	sessionManager := blockblast.NewSessionManager(prefs, results, blockblast.ManagerConfig{
		ClearDelay:   cfg.ClearDelay,
		RefillDelay:  cfg.RefillDelay,
		TickInterval: cfg.TickInterval,
	})
	defer sessionManager.Shutdown()

	gameHandler := handlers.NewGameHandler(sessionManager, cfg.JWTSecret, cfg.BypassAuth, cfg.AllowedOrigins)

	r := mux.NewRouter()

	// 認証不要な公開エンドポイント
	r.HandleFunc("/api/public", handlers.PublicHandlerFunc).Methods("GET")
	r.HandleFunc("/api/catalog", handlers.GetCatalog).Methods("GET")
	// WebSocket は接続後の最初のメッセージで認証する
	r.HandleFunc("/api/sessions/{sessionID}/ws", gameHandler.HandleWebSocketConnection).Methods("GET")

	protectedRouter := r.PathPrefix("/api/protected").Subrouter()
	protectedRouter.Use(middleware.NewAuthMiddleware(cfg.JWTSecret, cfg.BypassAuth))
	protectedRouter.HandleFunc("/sessions", gameHandler.CreateSession).Methods("POST")
	protectedRouter.HandleFunc("/sessions/{sessionID}", gameHandler.GetSessionState).Methods("GET")

	if results != nil {
		resultHandler := handlers.NewResultHandler(results)
		r.HandleFunc("/api/results", resultHandler.GetTopResults).Methods("GET")
		protectedRouter.HandleFunc("/results/me", resultHandler.GetMyResult).Methods("GET")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.CORSHandler(cfg.AllowedOrigins)(r), // プリフライトはルーティングの前に処理する
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exited")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
