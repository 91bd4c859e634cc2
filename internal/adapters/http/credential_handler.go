package http

import (
	"errors"
	"net/http"

	"blogsmith/internal/domain"
	"blogsmith/internal/logger"
)

type CredentialHandler struct {
	repo domain.CredentialRepository
	log  logger.Logger
}

func NewCredentialHandler(repo domain.CredentialRepository, log logger.Logger) *CredentialHandler {
	return &CredentialHandler{repo: repo, log: log}
}

type credentialRequest struct {
	GitToken         string `json:"git_token"`
	HostingToken     string `json:"hosting_token"`
	HostingKey       string `json:"hosting_key"`
	HostingEmail     string `json:"hosting_email"`
	HostingAccountID string `json:"hosting_account_id"`
}

// credentialStatus reports which credentials are configured without ever
// echoing the secret material back.
type credentialStatus struct {
	HasGitToken      bool   `json:"has_git_token"`
	HasHostingAuth   bool   `json:"has_hosting_auth"`
	HostingAccountID string `json:"hosting_account_id,omitempty"`
}

func (h *CredentialHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, &Response{Message: err.Error()})
		return
	}

	creds := &domain.Credentials{
		OwnerID:          OwnerID(r.Context()),
		GitToken:         req.GitToken,
		HostingToken:     req.HostingToken,
		HostingKey:       req.HostingKey,
		HostingEmail:     req.HostingEmail,
		HostingAccountID: req.HostingAccountID,
	}

	if err := h.repo.Put(r.Context(), creds); err != nil {
		h.log.Error("failed to store credentials", "error", err)
		writeJSON(w, http.StatusInternalServerError, &Response{Message: "failed to store credentials"})
		return
	}

	writeJSON(w, http.StatusOK, &Response{Message: "credentials stored"})
}

func (h *CredentialHandler) Show(w http.ResponseWriter, r *http.Request) {
	creds, err := h.repo.Get(r.Context(), OwnerID(r.Context()))
	if err != nil {
		if errors.Is(err, domain.ErrCredentialsNotFound) {
			writeJSON(w, http.StatusOK, &Response{Data: credentialStatus{}})
			return
		}
		h.log.Error("failed to load credentials", "error", err)
		writeJSON(w, http.StatusInternalServerError, &Response{Message: "failed to load credentials"})
		return
	}

	_, authErr := creds.ResolveHostingAuth()

	writeJSON(w, http.StatusOK, &Response{Data: credentialStatus{
		HasGitToken:      creds.GitToken != "",
		HasHostingAuth:   authErr == nil,
		HostingAccountID: creds.HostingAccountID,
	}})
}

func (h *CredentialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), OwnerID(r.Context())); err != nil {
		h.log.Error("failed to delete credentials", "error", err)
		writeJSON(w, http.StatusInternalServerError, &Response{Message: "failed to delete credentials"})
		return
	}

	writeJSON(w, http.StatusOK, &Response{Message: "credentials deleted"})
}
