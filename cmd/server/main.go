package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/mailquill/backend/internal/ai"
	"github.com/mailquill/backend/internal/api"
	"github.com/mailquill/backend/internal/config"
	"github.com/mailquill/backend/internal/db"
	"github.com/mailquill/backend/internal/imap"
	"github.com/mailquill/backend/internal/logging"
	"github.com/mailquill/backend/internal/query"
	ws "github.com/mailquill/backend/internal/websocket"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logging.NewLogger(cfg.Environment)

	ctx := context.Background()
	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.CloseConnection(pool)

	if err := db.Migrate(ctx, pool); err != nil {
		log.WithError(err).Fatal("Failed to apply schema")
	}

	log.Info("Connected to database")

	server := NewServer(cfg, pool, log)

	address := ":" + cfg.Port
	log.WithField("environment", cfg.Environment).Infof("MailQuill backend listening on %s", address)

	if err := http.ListenAndServe(address, server); err != nil {
		log.WithError(err).Fatal("Server failed to start")
	}
}

// NewServer wires the full HTTP handler tree for the MailQuill API.
func NewServer(cfg *config.Config, dbPool *pgxpool.Pool, log *logrus.Logger) http.Handler {
	// The hub gets its own hook-free logger; routing its records through
	// the hooked one would feed Broadcast's warnings back into Broadcast.
	wsHub := ws.NewHub(10, logging.NewLogger(cfg.Environment))
	log.AddHook(logging.NewHubHook(wsHub))

	fetcher := imap.NewService(log)
	completer := ai.NewClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel, cfg.AITemperature)
	historyStore := db.NewHistoryStore(dbPool, cfg.HistoryCapacity)
	notifier := ws.NewQueryNotifier(wsHub)
	runner := query.NewRunner(fetcher, completer, historyStore, notifier, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/", handleRoot)

	mux.Handle("/api/v1/test-connection", api.NewTestConnectionHandler(fetcher, log))
	mux.Handle("/api/v1/folders", api.NewFoldersHandler(fetcher, log))
	mux.Handle("/api/v1/fetch", api.NewFetchHandler(fetcher, log))
	mux.Handle("/api/v1/query", api.NewQueryHandler(runner, dbPool, log))

	historyHandler := api.NewHistoryHandler(historyStore, log)
	mux.Handle("/api/v1/history", historyHandler)
	mux.Handle("/api/v1/history/", historyHandler)

	tagsHandler := api.NewTagsHandler(dbPool, log)
	mux.Handle("/api/v1/tags", tagsHandler)
	mux.Handle("/api/v1/tags/", tagsHandler)

	variablesHandler := api.NewVariablesHandler(dbPool, log)
	mux.Handle("/api/v1/variables", variablesHandler)
	mux.Handle("/api/v1/variables/", variablesHandler)

	mux.Handle("/api/v1/settings", api.NewSettingsHandler(dbPool, log))
	mux.Handle("/api/v1/ws", api.NewWSHandler(wsHub, log))

	return mux
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "MailQuill API is running")
}
