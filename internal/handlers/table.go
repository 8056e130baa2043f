package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/falseshow/internal/ai"
	"github.com/jason-s-yu/falseshow/internal/cache"
	"github.com/jason-s-yu/falseshow/internal/game"
	"github.com/jason-s-yu/falseshow/internal/table"
	"github.com/sirupsen/logrus"
)

type createTableRequest struct {
	Name     string                 `json:"name"`
	Settings map[string]interface{} `json:"settings"`
	Bots     []string               `json:"bots"`
}

type joinTableRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// CreateTableHandler serves POST /table/create. The caller takes the first
// seat and any requested bots fill the next ones.
func CreateTableHandler(s *TableServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req createTableRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid payload")
				return
			}
		}

		guest, err := EnsureGuest(w, r)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not create guest")
			return
		}

		settings := game.DefaultSettings()
		if err := settings.Update(req.Settings); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(req.Bots)+1 > settings.MaxPlayers {
			writeError(w, http.StatusBadRequest, "too many bots for maxPlayers")
			return
		}
		difficulties := make([]ai.Difficulty, len(req.Bots))
		for i, b := range req.Bots {
			if difficulties[i], err = ai.ParseDifficulty(b); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		t, err := s.NewTable(settings)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		name := req.Name
		if name == "" {
			name = guest.Name
		}
		if _, err := t.Join(guest.UserID, name); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, d := range difficulties {
			if _, err := t.AddBot(d); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}

		s.Logger.WithFields(logrus.Fields{"table": t.ID, "code": t.Code, "bots": len(difficulties)}).Info("table created")
		writeJSON(w, http.StatusCreated, t.View(guest.UserID))
	}
}

// JoinTableHandler serves POST /table/join, finding the table by its code.
func JoinTableHandler(s *TableServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req joinTableRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		t, ok := s.Store.GetByCode(strings.TrimSpace(req.Code))
		if !ok {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}

		guest, err := EnsureGuest(w, r)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not create guest")
			return
		}
		name := req.Name
		if name == "" {
			name = guest.Name
		}
		if _, err := t.Join(guest.UserID, name); err != nil {
			status := http.StatusConflict
			if errors.Is(err, table.ErrTableClosed) {
				status = http.StatusGone
			}
			writeError(w, status, err.Error())
			return
		}
		s.broadcastTable(t)
		writeJSON(w, http.StatusOK, t.View(guest.UserID))
	}
}

// TableStateHandler serves GET /table/{id}/state. Tables no longer in memory
// are rebuilt read-only from their last Redis snapshot when persistence is on.
func TableStateHandler(s *TableServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/table/")
		idStr := strings.TrimSuffix(rest, "/state")
		id, err := uuid.Parse(idStr)
		if err != nil || !strings.HasSuffix(rest, "/state") {
			writeError(w, http.StatusBadRequest, "expected /table/{id}/state")
			return
		}

		var viewer string
		if g, err := authenticate(r); err == nil {
			viewer = g.UserID
		}

		if t, ok := s.Store.Get(id); ok {
			writeJSON(w, http.StatusOK, t.View(viewer))
			return
		}
		if !s.Persist {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}

		snap, err := cache.LoadSnapshot(r.Context(), id)
		if err != nil {
			if errors.Is(err, cache.ErrNoSnapshot) {
				writeError(w, http.StatusNotFound, "table not found")
				return
			}
			s.Logger.Warnf("load snapshot for %s: %v", id, err)
			writeError(w, http.StatusServiceUnavailable, "snapshot store unavailable")
			return
		}
		e := game.NewEngine()
		if err := e.Deserialize(snap); err != nil {
			s.Logger.Errorf("stored snapshot for %s is invalid: %v", id, err)
			writeError(w, http.StatusInternalServerError, "stored snapshot is invalid")
			return
		}
		gs := e.GetGameState(viewer)
		writeJSON(w, http.StatusOK, table.View{ID: id, Started: true, Settings: snap.Settings, Game: &gs})
	}
}
