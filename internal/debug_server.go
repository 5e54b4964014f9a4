package internal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"babel-relay/contract"
	"babel-relay/domain"
	"babel-relay/history"
	"babel-relay/observability"
)

// Diagnostics is the operator-facing JSON API, served on its own port so it
// can stay firewalled away from the websocket endpoint.
type Diagnostics struct {
	log      *slog.Logger
	registry contract.IRegistry
	monitor  *observability.Monitor
	repo     history.MessageRepository
	index    *history.Index
}

func NewDiagnostics(
	log *slog.Logger,
	registry contract.IRegistry,
	monitor *observability.Monitor,
	repo history.MessageRepository,
	index *history.Index,
) *Diagnostics {
	return &Diagnostics{log: log, registry: registry, monitor: monitor, repo: repo, index: index}
}

func (d *Diagnostics) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /debug/stats", d.handleStats)
	mux.HandleFunc("GET /debug/rooms", d.handleRooms)
	mux.HandleFunc("GET /debug/rooms/{room}", d.handleRoom)
	mux.HandleFunc("GET /debug/history", d.handleHistory)
	mux.HandleFunc("GET /debug/search", d.handleSearch)
	return mux
}

// StartDebugServer serves diagnostics in the background. Best effort: a
// failure is logged, never fatal.
func StartDebugServer(d *Diagnostics, port int) {
	go func() {
		addr := fmt.Sprintf(":%d", port)
		d.log.Info("Debug server listening", "addr", addr)
		if err := http.ListenAndServe(addr, d.Routes()); err != nil {
			d.log.Error("Debug server stopped", "err", err)
		}
	}()
}

func (d *Diagnostics) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, d.monitor.Snapshot())
}

func (d *Diagnostics) handleRooms(w http.ResponseWriter, _ *http.Request) {
	type roomSummary struct {
		Room         string `json:"room"`
		Participants int    `json:"participants"`
	}
	rooms := d.registry.ListRooms()
	out := make([]roomSummary, 0, len(rooms))
	for _, id := range rooms {
		ctrl, ok := d.registry.Lookup(id)
		if !ok {
			continue
		}
		out = append(out, roomSummary{Room: string(id), Participants: ctrl.Len()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (d *Diagnostics) handleRoom(w http.ResponseWriter, r *http.Request) {
	id := domain.RoomID(r.PathValue("room"))
	ctrl, ok := d.registry.Lookup(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return
	}

	type member struct {
		ParticipantID string `json:"participant_id"`
		Name          string `json:"name,omitempty"`
		Language      string `json:"language"`
		State         string `json:"state"`
	}
	roster := ctrl.Roster()
	members := make([]member, 0, len(roster))
	for _, p := range roster {
		members = append(members, member{
			ParticipantID: p.ID,
			Name:          p.Name,
			Language:      p.Language,
			State:         p.State.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": string(id), "roster": members})
}

func (d *Diagnostics) handleHistory(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "room query parameter required"})
		return
	}
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	messages, next, err := d.repo.GetMessages(room, cursor)
	if err != nil {
		d.log.Error("History read failed", "room", room, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages, "cursor": next})
}

func (d *Diagnostics) handleSearch(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	query := r.URL.Query().Get("q")
	if room == "" || query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "room and q query parameters required"})
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if d.index == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "search index disabled"})
		return
	}

	hits, err := d.index.Search(r.Context(), room, query, limit)
	if err != nil {
		d.log.Error("Search failed", "room", room, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "search unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hits": hits})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
