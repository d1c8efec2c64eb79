package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/purplestream-api/internal/auth"
	"github.com/maauso/purplestream-api/internal/catalog"
	"github.com/maauso/purplestream-api/internal/identity"
	"github.com/maauso/purplestream-api/internal/video"
)

const (
	// videoField is the multipart field carrying the file.
	videoField = "video"
	// titleField is the optional multipart field carrying the title.
	titleField = "title"

	maxTitleBytes = 64 << 10
)

var errTitleTooLong = errors.New("title exceeds maximum length")

// TokenIssuer signs tokens for authenticated users.
type TokenIssuer interface {
	Issue(u identity.User) (string, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service        *video.Service
	directory      identity.Directory
	tokens         TokenIssuer
	validator      *validator.Validate
	logger         *slog.Logger
	maxUploadBytes int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxUploadBytes limits the size of upload request bodies.
// Zero or a negative value means no limit.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		h.maxUploadBytes = n
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	service *video.Service,
	directory identity.Directory,
	tokens TokenIssuer,
	logger *slog.Logger,
	opts ...HandlerOption,
) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:   service,
		directory: directory,
		tokens:    tokens,
		validator: validator.New(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /api/health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{OK: true})
}

// Login handles POST /api/login requests.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	// An empty body is treated like an object with no fields.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	// Missing fields are reported like a wrong password.
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", "INVALID_CREDENTIALS")
		return
	}

	user, err := identity.Authenticate(r.Context(), h.directory, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			h.logger.Info("login rejected", slog.String("username", req.Username))
			writeError(w, http.StatusUnauthorized, "Invalid credentials", "INVALID_CREDENTIALS")
			return
		}
		h.logger.Error("user lookup failed",
			slog.String("username", req.Username),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error("failed to issue token",
			slog.String("username", user.Username),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
		return
	}

	h.logger.Info("user logged in", slog.String("username", user.Username))
	writeJSON(w, http.StatusOK, LoginResponse{
		Token: token,
		User:  user.Profile(),
	})
}

// Upload handles POST /api/upload requests.
// The body is a multipart form with a "video" file part and an optional
// "title" field, in either order. The file is streamed to temporary storage.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing token", "MISSING_TOKEN")
		return
	}

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			writeError(w, http.StatusBadRequest, "No file uploaded", "NO_FILE")
			return
		}
		h.writeMultipartError(w, err)
		return
	}

	input := video.UploadInput{Uploader: claims.Profile()}
	for {
		part, err := mr.NextPart()
		// A clean end of body is a bare io.EOF; a truncated body wraps it.
		if err == io.EOF {
			break
		}
		if err != nil {
			h.writeMultipartError(w, err)
			return
		}

		err = h.readPart(r, part, &input)
		_ = part.Close()
		if err != nil {
			if errors.Is(err, errTitleTooLong) {
				h.logger.Warn("upload title too long",
					slog.String("uploader", claims.Username),
					slog.Int("limit", maxTitleBytes),
				)
				writeError(w, http.StatusBadRequest, "title too long", "TITLE_TOO_LONG")
				return
			}
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) || !errors.Is(err, video.ErrUploadFailed) {
				h.writeMultipartError(w, err)
				return
			}
			h.logger.Error("failed to stage upload",
				slog.String("uploader", claims.Username),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "Upload failed", "UPLOAD_FAILED")
			return
		}
	}

	v, err := h.service.Upload(r.Context(), input)
	if err != nil {
		if errors.Is(err, video.ErrNoFile) {
			writeError(w, http.StatusBadRequest, "No file uploaded", "NO_FILE")
			return
		}
		writeError(w, http.StatusInternalServerError, "Upload failed", "UPLOAD_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{Success: true, Video: v})
}

// readPart consumes one multipart part into input. Only the first file part
// named "video" is kept.
func (h *Handlers) readPart(r *http.Request, part *multipart.Part, input *video.UploadInput) error {
	switch part.FormName() {
	case videoField:
		if part.FileName() == "" || input.TempPath != "" {
			return nil
		}
		path, err := h.service.Stage(r.Context(), part.FileName(), part)
		if err != nil {
			return err
		}
		input.TempPath = path
		input.Filename = part.FileName()
		input.MimeType = part.Header.Get("Content-Type")
	case titleField:
		data, err := io.ReadAll(io.LimitReader(part, maxTitleBytes+1))
		if err != nil {
			return err
		}
		if len(data) > maxTitleBytes {
			return errTitleTooLong
		}
		input.Title = string(data)
	}
	return nil
}

func (h *Handlers) writeMultipartError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.logger.Warn("upload too large", slog.Int64("limit", tooLarge.Limit))
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large", "UPLOAD_TOO_LARGE")
		return
	}
	h.logger.Warn("malformed multipart body", slog.String("error", err.Error()))
	writeError(w, http.StatusBadRequest, "invalid multipart body", "INVALID_MULTIPART")
}

// ListVideos handles GET /api/videos requests.
func (h *Handlers) ListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.service.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.logger.Error("failed to list videos", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, VideosResponse{Videos: videos})
}

// Delete handles POST /api/delete requests.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing token", "MISSING_TOKEN")
		return
	}

	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	// A missing, empty or non-string id matches no record.
	videoID, _ := req.ID.(string)
	if videoID == "" {
		writeError(w, http.StatusNotFound, "Not found", "NOT_FOUND")
		return
	}

	err := h.service.Delete(r.Context(), claims.Profile(), videoID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", "NOT_FOUND")
	case errors.Is(err, video.ErrForbidden):
		writeError(w, http.StatusForbidden, "Not authorized", "FORBIDDEN")
	default:
		h.logger.Error("failed to delete video",
			slog.String("video_id", videoID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Delete failed", "DELETE_FAILED")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
