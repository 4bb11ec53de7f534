package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"deskrag/internal/adapter"
	"deskrag/internal/adapter/utils"
	"deskrag/internal/api"
	"deskrag/internal/config"
)

// CreateSessionHandler godoc
// @Summary      Create a chat session
// @Description  Creates a session that accumulates turns and a rolling summary for multi-turn chat.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        request  body      api.CreateSessionRequest   false  "Optional session title"
// @Success      201      {object}  api.CreateSessionResponse
// @Router       /sessions [post]
func CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {

		var requestData api.CreateSessionRequest
		defer func(Body io.ReadCloser) {
			err := Body.Close()
			if err != nil {
				logRH.Error("Couldn't close the Create Session reader :", err)
			}
		}(r.Body)
		// an empty body means an untitled session
		if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil && err != io.EOF {
			logRH.Warn("Bad Create Session Request: ", "error:", err)
			WriteErrorResponse(w, http.StatusBadRequest, "Bad Request")
			return
		}

		session, err := handlerInstance.docStore.CreateSession(r.Context(), requestData.Title)
		if err != nil {
			logRH.Error("Creating session failed", "err", err)
			writeServiceError(w, err)
			return
		}
		writeJsonResponse(w, http.StatusCreated, api.CreateSessionResponse{
			SessionId: session.Id,
			Title:     session.Title,
		})
	}
}

// GetSessionHandler godoc
// @Summary      Get a session with its history
// @Description  Returns the session metadata, its rolling summary if one exists, and the stored turns in order.
// @Tags         Sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  api.GetSessionResponse
// @Failure      404  {object}  api.ErrorResponse  "Session not found"
// @Router       /sessions/{id} [get]
func GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		sessionID := utils.GetChiURLParam(r, "id")

		session, err := handlerInstance.docStore.GetSession(r.Context(), sessionID)
		if err != nil {
			logRH.Warn("Session lookup failed", "sessionId", sessionID, "err", err)
			writeServiceError(w, err)
			return
		}

		summary, _, err := handlerInstance.docStore.GetSummary(r.Context(), sessionID)
		if err != nil {
			logRH.Error("Summary lookup failed", "sessionId", sessionID, "err", err)
			writeServiceError(w, err)
			return
		}

		messages, err := handlerInstance.docStore.ListMessages(r.Context(), sessionID, config.MaxMessageLimit)
		if err != nil {
			logRH.Error("Listing session messages failed", "sessionId", sessionID, "err", err)
			writeServiceError(w, err)
			return
		}

		writeJsonResponse(w, http.StatusOK, adapter.ToSessionResponse(session, summary.Text, messages))
	}
}
