package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sweeney/motor-switch/internal/history"
	"github.com/sweeney/motor-switch/internal/logic"
)

// maxBodyBytes caps request bodies on the control endpoints.
const maxBodyBytes = 4 << 10

// PostureRequest is the body of POST /posture.
type PostureRequest struct {
	PostureQuality string `json:"postureQuality"`
}

// PostureResponse is the reply to POST /posture.
type PostureResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CommandRequest is the body of POST /command.
type CommandRequest struct {
	Command string `json:"command"`
}

// CommandResponse reports the loop's outcome for a submitted command.
type CommandResponse struct {
	Command string `json:"command"`
	Result  string `json:"result"`
	State   string `json:"state"`
	Message string `json:"message"`
}

// HistoryJSON is the body of GET /history.json.
type HistoryJSON struct {
	History []HistoryEntryJSON `json:"history"`
}

// HistoryEntryJSON is one history entry.
type HistoryEntryJSON struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
	Command   string `json:"command"`
	Result    string `json:"result"`
	State     string `json:"state"`
	Message   string `json:"message"`
}

// errorJSON is the body of any non-2xx reply.
type errorJSON struct {
	Error string `json:"error"`
}

// postureCommand maps a posture report to the motor command.
// Good posture stops the motor; anything else starts it.
func postureCommand(quality string) string {
	if quality == "Good" {
		return "off"
	}
	return "on"
}

// statusForOutcome picks the HTTP status for a loop outcome.
func statusForOutcome(out logic.Outcome) int {
	switch out.Result {
	case logic.ResultAccepted:
		return http.StatusOK
	case logic.ResultUnknown, logic.ResultInvalid:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorJSON{Error: err.Error()})
}

func (s *Server) handlePosture(w http.ResponseWriter, r *http.Request) {
	var req PostureRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	message := postureCommand(req.PostureQuality)
	out, err := s.submit(r.Context(), message)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	if out.Result != logic.ResultAccepted {
		writeJSON(w, statusForOutcome(out), PostureResponse{Status: "Posture update failed", Message: out.Message})
		return
	}
	writeJSON(w, http.StatusOK, PostureResponse{Status: "Posture updated", Message: message})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out, err := s.submit(r.Context(), req.Command)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	writeJSON(w, statusForOutcome(out), CommandResponse{
		Command: out.Command,
		Result:  string(out.Result),
		State:   string(out.State),
		Message: out.Message,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.NotFound(w, r)
		return
	}

	limit := history.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := HistoryJSON{History: make([]HistoryEntryJSON, 0, len(entries))}
	for _, e := range entries {
		out.History = append(out.History, HistoryEntryJSON{
			ID:        e.ID,
			Timestamp: e.Time.UTC().Format(time.RFC3339),
			Source:    string(e.Source),
			Command:   e.Command,
			Result:    string(e.Result),
			State:     string(e.State),
			Message:   e.Message,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
