package venue

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/persistence"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/types"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/verifier"
)

func (s *Server) handleApiKeys(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListApiKeys(w, r)
	case http.MethodPost:
		s.handleRegisterApiKey(w, r)
	case http.MethodDelete:
		s.handleDeleteApiKey(w, r)
	default:
		verifier.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleListApiKeys(w http.ResponseWriter, r *http.Request) {
	owner, _ := verifier.AddressFromContext(r.Context())

	records, err := s.persistence.ListApiKeys(owner)
	if err != nil {
		s.logger.Sugar().Errorw("Failed to list api keys", "owner", owner.Hex(), "error", err)
		verifier.WriteError(w, http.StatusInternalServerError, "Failed to list api keys")
		return
	}

	res := types.ApiKeysResponse{ApiKeys: make([]types.ApiKey, 0, len(records))}
	for _, record := range records {
		res.ApiKeys = append(res.ApiKeys, record.ToApiKey())
	}
	verifier.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleRegisterApiKey(w http.ResponseWriter, r *http.Request) {
	owner, _ := verifier.AddressFromContext(r.Context())

	var req types.RegisterApiKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		verifier.WriteError(w, http.StatusBadRequest, "Failed to parse request: "+err.Error())
		return
	}
	req.ApiKey = strings.TrimSpace(req.ApiKey)
	if req.ApiKey == "" {
		verifier.WriteError(w, http.StatusBadRequest, "apiKey is required")
		return
	}

	existing, err := s.persistence.LoadApiKey(owner, req.ApiKey)
	if err != nil {
		s.logger.Sugar().Errorw("Failed to load api key", "owner", owner.Hex(), "error", err)
		verifier.WriteError(w, http.StatusInternalServerError, "Failed to register api key")
		return
	}
	if existing != nil {
		verifier.WriteError(w, http.StatusConflict, "Api key already registered")
		return
	}

	record := persistence.NewApiKeyRecord(owner, req.ApiKey, s.now())
	if err := s.persistence.SaveApiKey(record); err != nil {
		s.logger.Sugar().Errorw("Failed to save api key", "owner", owner.Hex(), "error", err)
		verifier.WriteError(w, http.StatusInternalServerError, "Failed to register api key")
		return
	}

	s.logger.Sugar().Infow("Registered api key", "owner", owner.Hex(), "apiKey", req.ApiKey)
	verifier.WriteJSON(w, http.StatusCreated, types.ApiKeyResponse{ApiKey: record.ToApiKey()})
}

func (s *Server) handleDeleteApiKey(w http.ResponseWriter, r *http.Request) {
	owner, _ := verifier.AddressFromContext(r.Context())

	apiKey := r.URL.Query().Get("apiKey")
	if apiKey == "" {
		verifier.WriteError(w, http.StatusBadRequest, "apiKey query parameter is required")
		return
	}

	existed, err := s.persistence.DeleteApiKey(owner, apiKey)
	if err != nil {
		s.logger.Sugar().Errorw("Failed to delete api key", "owner", owner.Hex(), "error", err)
		verifier.WriteError(w, http.StatusInternalServerError, "Failed to delete api key")
		return
	}
	if !existed {
		verifier.WriteError(w, http.StatusNotFound, "Api key not found")
		return
	}

	s.logger.Sugar().Infow("Deleted api key", "owner", owner.Hex(), "apiKey", apiKey)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.persistence.HealthCheck(); err != nil {
		verifier.WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	verifier.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
