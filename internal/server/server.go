// Package server owns the HTTP surface: routing, request/response
// marshalling, and the mapping of component error kinds to status
// codes. All domain work is delegated to the injected collaborators.
package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/studioforge/upload-gateway/internal/identity"
	"github.com/studioforge/upload-gateway/internal/mirror"
	"github.com/studioforge/upload-gateway/internal/objectkey"
	"github.com/studioforge/upload-gateway/internal/policy"
	"github.com/studioforge/upload-gateway/internal/storage"
)

const (
	confirmationNotAttempted = "not_attempted"
	confirmationSuccess      = "success"
	confirmationFailed       = "failed"

	// memory ceiling for multipart parsing; larger parts spill to disk
	maxMultipartMemory = 32 << 20
)

// Options wires the server's collaborators. Everything is constructed
// once at startup and shared read-only across requests.
type Options struct {
	Verifier       identity.Verifier
	Notifier       identity.Notifier
	Store          storage.Store
	Screen         *policy.Screen
	Mirrors        mirror.Set
	PresignExpiry  time.Duration
	MaxUploadBytes int64
	AllowedOrigins []string
	Logger         zerolog.Logger
	Now            func() time.Time
}

type Server struct {
	verifier       identity.Verifier
	notifier       identity.Notifier
	store          storage.Store
	screen         *policy.Screen
	mirrors        mirror.Set
	presignExpiry  time.Duration
	maxUploadBytes int64
	origins        []string
	logger         zerolog.Logger
	now            func() time.Time
}

func New(opts Options) *Server {
	s := &Server{
		verifier:       opts.Verifier,
		notifier:       opts.Notifier,
		store:          opts.Store,
		screen:         opts.Screen,
		mirrors:        opts.Mirrors,
		presignExpiry:  opts.PresignExpiry,
		maxUploadBytes: opts.MaxUploadBytes,
		origins:        opts.AllowedOrigins,
		logger:         opts.Logger,
		now:            opts.Now,
	}
	if s.presignExpiry <= 0 {
		s.presignExpiry = storage.DefaultPresignExpiry
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(s.origins))
	r.Post("/upload", s.handleUpload)
	r.Post("/get-upload-url", s.handleGetUploadURL)
	r.Post("/confirm-upload", s.handleConfirmUpload)
	r.Get("/health", s.handleHealth)
	return r
}

type uploadResponse struct {
	StorageKey         string `json:"storage_key"`
	URL                string `json:"url"`
	UserID             string `json:"user_id"`
	Folder             string `json:"folder,omitempty"`
	Timestamp          string `json:"timestamp"`
	ConfirmationStatus string `json:"confirmation_status"`
	MirrorStatus       string `json:"mirror_status,omitempty"`
}

type presignResponse struct {
	StorageKey       string `json:"storage_key"`
	UploadURL        string `json:"upload_url"`
	URL              string `json:"url"`
	UserID           string `json:"user_id"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
	Timestamp        string `json:"timestamp"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	user, credential, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		s.writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeDetail(w, http.StatusBadRequest, "file field is required")
		return
	}
	data, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		s.writeDetail(w, http.StatusBadRequest, fmt.Sprintf("read file: %v", err))
		return
	}
	if header.Filename == "" {
		s.writeDetail(w, http.StatusBadRequest, "uploaded file carries no filename")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}

	if err := s.screen.Check(header.Filename, int64(len(data)), data); err != nil {
		var violation *policy.Violation
		if errors.As(err, &violation) {
			s.logger.Warn().
				Str("user_id", user.ID).
				Str("rule", violation.Rule).
				Str("filename", header.Filename).
				Msg("upload screening violation")
			if s.screen.Enforced() {
				s.writeDetail(w, http.StatusUnprocessableEntity, violation.Error())
				return
			}
		}
	}

	query := r.URL.Query()
	req := objectkey.Request{
		OriginalFilename: header.Filename,
		CustomFilename:   query.Get("filename"),
		Folder:           query.Get("folder"),
	}
	now := s.now()
	key := objectkey.Derive(req, user, now)

	meta := map[string]string{
		"user_id":           user.ID,
		"original_filename": header.Filename,
		"uploaded_at":       now.UTC().Format(time.RFC3339),
	}
	if req.CustomFilename != "" {
		meta["custom_filename"] = req.CustomFilename
	}

	fileURL, err := s.store.Put(r.Context(), key, data, contentType, meta)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("object store write failed")
		s.writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("store upload: %v", err))
		return
	}

	confirmation := confirmationNotAttempted
	if s.notifier != nil {
		// The object is durably stored; a failed confirmation is
		// advisory and must not fail the request.
		if err := s.notifier.SaveFileURL(r.Context(), credential, path.Base(key), fileURL, user.ID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("upload confirmation failed")
			confirmation = confirmationFailed
		} else {
			confirmation = confirmationSuccess
		}
	}

	mirrorStatus := ""
	if len(s.mirrors) > 0 {
		if err := s.mirrors.Store(r.Context(), s.logger, key, data); err != nil {
			mirrorStatus = confirmationFailed
		} else {
			mirrorStatus = confirmationSuccess
		}
	}

	folder := req.Folder
	if folder == "" {
		folder = user.Workspace
	}
	s.logger.Info().
		Str("user_id", user.ID).
		Str("key", key).
		Int("size_bytes", len(data)).
		Msg("file uploaded")

	writeJSON(w, http.StatusOK, uploadResponse{
		StorageKey:         key,
		URL:                fileURL,
		UserID:             user.ID,
		Folder:             folder,
		Timestamp:          now.UTC().Format(time.RFC3339),
		ConfirmationStatus: confirmation,
		MirrorStatus:       mirrorStatus,
	})
}

func (s *Server) handleGetUploadURL(w http.ResponseWriter, r *http.Request) {
	user, _, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filename := query.Get("filename")
	if filename == "" {
		s.writeDetail(w, http.StatusBadRequest, "filename query parameter is required")
		return
	}

	now := s.now()
	key := objectkey.Derive(objectkey.Request{
		OriginalFilename: filename,
		Folder:           query.Get("folder"),
	}, user, now)

	presigned, err := s.store.PresignPut(r.Context(), key, s.presignExpiry)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("presign failed")
		s.writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("issue upload url: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, presignResponse{
		StorageKey:       presigned.Key,
		UploadURL:        presigned.UploadURL,
		URL:              presigned.PublicURL,
		UserID:           user.ID,
		ExpiresInSeconds: int64(presigned.ExpiresIn.Seconds()),
		Timestamp:        now.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleConfirmUpload(w http.ResponseWriter, r *http.Request) {
	user, credential, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	fileURL := query.Get("file_url")
	filename := query.Get("filename")
	if fileURL == "" || filename == "" {
		s.writeDetail(w, http.StatusBadRequest, "file_url and filename query parameters are required")
		return
	}

	confirmation := confirmationNotAttempted
	if s.notifier != nil {
		if err := s.notifier.SaveFileURL(r.Context(), credential, filename, fileURL, user.ID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("upload confirmation failed")
			confirmation = confirmationFailed
		} else {
			confirmation = confirmationSuccess
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"confirmation_status": confirmation,
		"user_id":             user.ID,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// authenticate verifies the bearer credential and short-circuits the
// response on failure. No storage or notifier call happens before this
// succeeds.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*identity.UserContext, string, bool) {
	credential := r.Header.Get("Authorization")
	user, err := s.verifier.Verify(r.Context(), credential)
	if err != nil {
		var authErr *identity.AuthError
		if errors.As(err, &authErr) {
			s.logger.Warn().Str("kind", string(authErr.Kind)).Msg("authentication rejected")
		}
		s.writeDetail(w, http.StatusUnauthorized, err.Error())
		return nil, "", false
	}
	return user, credential, true
}

func (s *Server) writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
