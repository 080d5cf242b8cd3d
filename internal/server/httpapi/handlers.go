package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/filesafe/internal/common"
	"github.com/dmitrijs2005/filesafe/internal/server/access"
	"github.com/dmitrijs2005/filesafe/internal/server/models"
	"github.com/dmitrijs2005/filesafe/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// maxUploadBytes bounds the multipart form held in memory per upload.
const maxUploadBytes = 32 << 20

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type fileResponse struct {
	Ref       string    `json:"ref"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// objectContentResponse carries the ciphertext and its key material to the
// client. Decryption happens at the edge; plaintext is never materialized
// server-side. The []byte fields serialize as base64.
type objectContentResponse struct {
	Name       string `json:"name"`
	Ciphertext []byte `json:"ciphertext"`
	Key        []byte `json:"key"`
	IV         []byte `json:"iv"`
}

type accessibleFileResponse struct {
	Ref        string     `json:"ref"`
	Name       string     `json:"name"`
	Owned      bool       `json:"owned"`
	View       bool       `json:"view"`
	Download   bool       `json:"download"`
	Expiration *time.Time `json:"expiration,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type shareRequest struct {
	Grantee       string `json:"grantee"`
	View          bool   `json:"view"`
	Download      bool   `json:"download"`
	DurationHours *int   `json:"duration_hours"`
}

type shareResponse struct {
	Grantee    string    `json:"grantee"`
	View       bool      `json:"view"`
	Download   bool      `json:"download"`
	Expiration time.Time `json:"expiration"`
	Status     string    `json:"status"`
}

type permissionRequest struct {
	Grantee    string `json:"grantee"`
	Permission string `json:"permission"`
	Value      bool   `json:"value"`
}

type revokeRequest struct {
	Grantee string `json:"grantee"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

// writeServiceError maps sentinel errors from the service layer onto HTTP
// statuses. Anything unrecognized is a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrGrantNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not the owner")
	case errors.Is(err, common.ErrInvalidDuration):
		writeError(w, http.StatusBadRequest, "duration must be positive")
	case errors.Is(err, common.ErrUnknownPermission):
		writeError(w, http.StatusBadRequest, "unknown permission")
	case errors.Is(err, common.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	case errors.Is(err, common.ErrDecryptionFailure):
		writeError(w, http.StatusInternalServerError, "decryption failure")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeDenial(w http.ResponseWriter, decision access.Decision) {
	writeJSON(w, http.StatusForbidden, map[string]string{
		"error":  "forbidden",
		"reason": string(decision.Reason),
	})
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidLoginPassword):
			writeError(w, http.StatusBadRequest, "username and password are required")
		case errors.Is(err, common.ErrLoginAlreadyExists):
			writeError(w, http.StatusConflict, "username is taken")
		default:
			writeServiceError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": user.ID, "username": user.UserName})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidLoginPassword) {
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := s.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) || errors.Is(err, common.ErrRefreshTokenExpired) {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	object, err := s.objects.Upload(r.Context(), principalID(r), header.Filename, data)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp, err := s.fileResponse(object)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *HTTPServer) fileResponse(object *models.EncryptedObject) (*fileResponse, error) {
	ref, err := s.links.Issue(object.ID)
	if err != nil {
		return nil, err
	}
	return &fileResponse{Ref: ref, Name: object.Name, CreatedAt: object.CreatedAt}, nil
}

func (s *HTTPServer) handleListOwned(w http.ResponseWriter, r *http.Request) {
	owned, err := s.objects.ListOwned(r.Context(), principalID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result := make([]*fileResponse, 0, len(owned))
	for _, o := range owned {
		resp, err := s.fileResponse(o)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		result = append(result, resp)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleListAccessible(w http.ResponseWriter, r *http.Request) {
	accessible, err := s.grants.ListAccessibleTo(r.Context(), principalID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result := make([]*accessibleFileResponse, 0, len(accessible))
	for _, a := range accessible {
		ref, err := s.links.Issue(a.ObjectID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		item := &accessibleFileResponse{
			Ref:       ref,
			Name:      a.Name,
			Owned:     a.Owned,
			View:      a.View,
			Download:  a.Download,
			CreatedAt: a.CreatedAt,
		}
		if !a.Expiration.IsZero() {
			expiration := a.Expiration
			item.Expiration = &expiration
		}
		result = append(result, item)
	}
	writeJSON(w, http.StatusOK, result)
}

// resolveRef turns the {ref} path segment back into an object id and
// confirms the object still exists. A bad reference and a stale reference
// to a deleted object are indistinguishable.
func (s *HTTPServer) resolveRef(w http.ResponseWriter, r *http.Request) (string, bool) {
	objectID, err := s.links.Resolve(chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return "", false
	}
	if err := s.objects.Exists(r.Context(), objectID); err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return "", false
	}
	return objectID, true
}

func (s *HTTPServer) handleView(w http.ResponseWriter, r *http.Request) {
	s.serveObject(w, r, access.OpView)
}

func (s *HTTPServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	s.serveObject(w, r, access.OpDownload)
}

func (s *HTTPServer) serveObject(w http.ResponseWriter, r *http.Request, op access.Operation) {
	objectID, ok := s.resolveRef(w, r)
	if !ok {
		return
	}

	result, decision, err := s.objects.Retrieve(r.Context(), principalID(r), objectID, op)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !decision.Allowed {
		writeDenial(w, decision)
		return
	}

	writeJSON(w, http.StatusOK, &objectContentResponse{
		Name:       result.Name,
		Ciphertext: result.Ciphertext,
		Key:        result.Key,
		IV:         result.IV,
	})
}

func (s *HTTPServer) handleShare(w http.ResponseWriter, r *http.Request) {
	objectID, ok := s.resolveRef(w, r)
	if !ok {
		return
	}

	var req shareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	durationHours := s.defaultGrantHours
	if req.DurationHours != nil {
		durationHours = *req.DurationHours
	}

	summary, err := s.grants.Share(r.Context(), principalID(r), objectID, req.Grantee, req.View, req.Download, durationHours)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, shareSummaryResponse(summary))
}

func shareSummaryResponse(summary *services.GrantSummary) *shareResponse {
	return &shareResponse{
		Grantee:    summary.Grantee,
		View:       summary.View,
		Download:   summary.Download,
		Expiration: summary.Expiration,
		Status:     string(summary.Status),
	}
}

func (s *HTTPServer) handleListShares(w http.ResponseWriter, r *http.Request) {
	objectID, ok := s.resolveRef(w, r)
	if !ok {
		return
	}

	summaries, err := s.grants.ListSharedWith(r.Context(), principalID(r), objectID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result := make([]*shareResponse, 0, len(summaries))
	for _, summary := range summaries {
		result = append(result, shareSummaryResponse(summary))
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleUpdatePermission(w http.ResponseWriter, r *http.Request) {
	objectID, ok := s.resolveRef(w, r)
	if !ok {
		return
	}

	var req permissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.grants.UpdatePermission(r.Context(), principalID(r), objectID, req.Grantee, req.Permission, req.Value); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleRevoke(w http.ResponseWriter, r *http.Request) {
	objectID, ok := s.resolveRef(w, r)
	if !ok {
		return
	}

	var req revokeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.grants.Revoke(r.Context(), principalID(r), objectID, req.Grantee); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
