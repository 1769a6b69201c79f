package api

import (
	"encoding/json"
	"net/http"

	"nodepalette/internal/domain/palette/catapult"
)

// handleGenerate /start 与 /next_batch 共用：校验请求后切到 SSE 流
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req catapult.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}
	if req.SessionID == "" || req.DiagramType == "" {
		writeErrorCode(w, http.StatusBadRequest, "missing_field", "session_id and diagram_type are required")
		return
	}

	sw, err := newSSEWriter(w)
	if err != nil {
		writeErrorCode(w, http.StatusInternalServerError, "streaming_unsupported", err.Error())
		return
	}

	s.logger.Info("batch stream opened",
		"session_id", req.SessionID, "diagram_type", req.DiagramType,
		"stage", req.Stage, "mode", req.Mode, "subject", subjectFrom(r.Context()))
	s.gen.stream(r.Context(), &req, sw)
}

func (s *Server) handleSelectNode(w http.ResponseWriter, r *http.Request) {
	var req catapult.SelectNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}
	s.logger.Debug("selection telemetry",
		"session_id", req.SessionID, "node_id", req.NodeID, "selected", req.Selected)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req catapult.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}
	s.logger.Info("session cancelled",
		"session_id", req.SessionID, "diagram_type", req.DiagramType,
		"total_nodes", req.TotalNodesGenerated, "batches", req.BatchesLoaded)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	var req catapult.FinishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}
	s.logger.Info("session finished",
		"session_id", req.SessionID, "diagram_type", req.DiagramType,
		"selected", len(req.SelectedNodeIDs), "total_nodes", req.TotalNodesGenerated)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
