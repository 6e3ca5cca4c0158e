package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/blockfall/blockfall/internal/board"
	"github.com/blockfall/blockfall/internal/directory"
	"github.com/blockfall/blockfall/internal/game"
	"github.com/blockfall/blockfall/internal/matchmaking"
	"github.com/blockfall/blockfall/internal/replay"
)

// maxBoardBody bounds uploaded board states.
const maxBoardBody = 1 << 20

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	caller, ok := playerID(w, r)
	if !ok {
		return
	}
	id, err := s.svc.CreateSession(r.Context(), caller)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": id.String(),
		"owner":      id.Owner,
		"seed":       id.Seed,
		"start_time": id.StartTime,
	})
}

func (s *Server) handleAppendSegment(w http.ResponseWriter, r *http.Request) {
	caller, ok := playerID(w, r)
	if !ok {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var seg game.Segment
	if err := json.NewDecoder(r.Body).Decode(&seg); err != nil {
		writeError(w, http.StatusBadRequest, "malformed segment body")
		return
	}
	err := s.svc.AppendSegment(r.Context(), id, seg, caller)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "appended"})
	case errors.Is(err, replay.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case replay.IsValidation(err):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeInternalError(w, err)
	}
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	state, found, err := s.svc.LatestState(r.Context(), id)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no state for session")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetSegments(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	segs, err := s.svc.Segments(r.Context(), id)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, segs)
}

func (s *Server) handleGetMeta(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	meta, found, err := s.svc.SessionMeta(r.Context(), id)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	order := directory.Order(r.URL.Query().Get("order"))
	switch order {
	case "":
		order = directory.OrderRecent
	case directory.OrderBest, directory.OrderRecent:
	default:
		writeError(w, http.StatusBadRequest, "unknown listing order")
		return
	}

	scope := directory.ScopeAll()
	switch r.URL.Query().Get("scope") {
	case "", "all":
	case "mine":
		caller, ok := playerID(w, r)
		if !ok {
			return
		}
		scope = directory.ScopeOwner(caller)
	case "player":
		player, err := uuid.Parse(r.URL.Query().Get("player"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed player id")
			return
		}
		scope = directory.ScopeOwner(player)
	default:
		writeError(w, http.StatusBadRequest, "unknown scope")
		return
	}

	entries, err := s.svc.ListSessions(r.Context(), scope, order)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"session_id": e.ID.String(),
			"owner":      e.ID.Owner,
			"start_time": e.ID.StartTime,
			"meta":       e.Meta,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFindMatch(w http.ResponseWriter, r *http.Request) {
	caller, ok := playerID(w, r)
	if !ok {
		return
	}
	// Blocks until paired; the client aborting the request cancels the wait
	// through the request context.
	m, err := s.svc.FindMatch(r.Context(), caller)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, m)
	case errors.Is(err, matchmaking.ErrAlreadyQueued):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Client went away; nothing useful to write.
	default:
		writeInternalError(w, err)
	}
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed match id")
		return
	}
	rec, found, err := s.svc.Match(r.Context(), id)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "match not found")
		return
	}
	writeJSON(w, http.StatusOK, matchmaking.Match{ID: id, Record: rec})
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.svc.Matches(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) handleListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := s.svc.Boards(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if boards == nil {
		boards = []board.Board{}
	}
	writeJSON(w, http.StatusOK, boards)
}

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	state, found, err := s.svc.Board(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "board not found")
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(state))
}

func (s *Server) handleSaveBoard(w http.ResponseWriter, r *http.Request) {
	if _, ok := playerID(w, r); !ok {
		return
	}
	state, err := io.ReadAll(io.LimitReader(r.Body, maxBoardBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	err = s.svc.SaveBoard(r.Context(), chi.URLParam(r, "name"), state)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
	case errors.Is(err, board.ErrInvalidBoard):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeInternalError(w, err)
	}
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	player, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed player id")
		return
	}
	p, err := s.svc.Profile(r.Context(), player)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func playerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get(PlayerHeader))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing or malformed "+PlayerHeader+" header")
		return uuid.Nil, false
	}
	return id, true
}

func sessionID(w http.ResponseWriter, r *http.Request) (game.SessionID, bool) {
	id, err := game.ParseSessionID(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed session id")
		return game.SessionID{}, false
	}
	return id, true
}
