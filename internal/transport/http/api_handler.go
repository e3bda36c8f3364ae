package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"quiz-mastery-service/internal/app"
	"quiz-mastery-service/internal/domain"
	"quiz-mastery-service/internal/leaderboard"
)

// APIHandler serves the JSON read endpoints (leaderboard, mastery profiles).
type APIHandler struct {
	service      *app.GameService
	defaultLimit int
}

func NewAPIHandler(service *app.GameService, defaultLimit int) *APIHandler {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &APIHandler{service: service, defaultLimit: defaultLimit}
}

type leaderboardResponse struct {
	Window  domain.Window       `json:"window"`
	Entries []leaderboard.Entry `json:"entries"`
}

// ServeLeaderboard handles GET /leaderboard?window=&limit=.
func (h *APIHandler) ServeLeaderboard(w http.ResponseWriter, r *http.Request) {
	window, err := domain.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
	}

	entries, err := h.service.Leaderboard(r.Context(), window, limit)
	if errors.Is(err, domain.ErrInvalidLimit) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Printf("leaderboard query failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	writeJSON(w, leaderboardResponse{Window: window, Entries: entries})
}

type masteryResponse struct {
	UserID  string                  `json:"userId"`
	Mastery map[domain.Category]int `json:"mastery"`
}

// ServeMastery handles GET /mastery?userId=.
func (h *APIHandler) ServeMastery(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	profile, err := h.service.MasteryProfile(r.Context(), userID)
	if err != nil {
		log.Printf("mastery query failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, masteryResponse{UserID: userID, Mastery: profile})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json response: %v", err)
	}
}
