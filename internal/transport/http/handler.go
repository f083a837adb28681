package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"daily-riddle-bot/internal/app"
	"daily-riddle-bot/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler serves read-only bot status: health, leaderboard pages and a live leaderboard feed.
type Handler struct {
	service  *app.RiddleService
	feed     *app.LeaderboardFeed
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewHandler(service *app.RiddleService, feed *app.LeaderboardFeed, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service: service,
		feed:    feed,
		log:     logger.Named("http"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes registers all endpoints on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/leaderboard", h.ServeLeaderboard)
	mux.HandleFunc("/ws", h.ServeWS)
	return mux
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeLeaderboard returns one page: /leaderboard?category=insight&page=0
func (h *Handler) ServeLeaderboard(w http.ResponseWriter, r *http.Request) {
	category, err := domain.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: err.Error()})
		return
	}
	page := 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		if page, err = strconv.Atoi(raw); err != nil {
			writeJSON(w, http.StatusBadRequest, errorPayload{Message: "page must be an integer"})
			return
		}
	}

	lb, err := h.service.Leaderboard(r.Context(), category, page)
	if err != nil {
		h.log.Error("leaderboard failed", zap.Error(err))
		status := http.StatusInternalServerError
		if !errors.Is(err, domain.ErrPersistence) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorPayload{Message: domain.UserMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

// ServeWS upgrades to a websocket and streams the overall ranking after every ledger change.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := h.feed.Subscribe()
	defer cancel()

	// The reader only watches for the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(outboundMessage[domain.LeaderboardPage]{Type: "leaderboard", Payload: update}); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
