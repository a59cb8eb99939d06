// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/bastion/internal/auth"
	"github.com/jason-s-yu/bastion/internal/cache"
	"github.com/jason-s-yu/bastion/internal/database"
	"github.com/jason-s-yu/bastion/internal/handlers"
	"github.com/jason-s-yu/bastion/internal/middleware"
)

func main() {
	auth.Init()
	database.ConnectDB()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, action log disabled: %v", err)
	}

	mux := http.NewServeMux()

	// user endpoints
	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)

	srv := handlers.NewGameServer()

	// game endpoints
	mux.Handle("/game/create", middleware.LogMiddleware(logger)(http.HandlerFunc(
		srv.CreateGameHandler,
	)))
	mux.Handle("/game/state/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		srv.GameStateHandler,
	)))
	mux.Handle("/game/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.GameWSHandler(logger, srv),
	)))

	// matchmaking endpoints
	mux.Handle("/matchmaking/status/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		srv.MatchStatusHandler,
	)))
	mux.Handle("/matchmaking/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.MatchmakingWSHandler(logger, srv),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
