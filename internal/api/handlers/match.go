package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dom/faceoff/internal/api/middleware"
	"github.com/dom/faceoff/internal/domain"
	"github.com/dom/faceoff/internal/security"
	"github.com/dom/faceoff/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const photoField = "photo"

var errNoPhoto = errors.New("no photo")

type MatchHandler struct {
	matchService   *service.MatchService
	uploadMaxBytes int64
	logger         *zap.Logger
}

func NewMatchHandler(matchService *service.MatchService, uploadMaxBytes int64, logger *zap.Logger) *MatchHandler {
	return &MatchHandler{
		matchService:   matchService,
		uploadMaxBytes: uploadMaxBytes,
		logger:         logger,
	}
}

func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := middleware.GetSessionUser(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	if err := h.parseForm(w, r); err != nil {
		writeError(w, h.logger, err)
		return
	}
	photo, err := h.readPhoto(r)
	if err != nil && !errors.Is(err, errNoPhoto) {
		writeError(w, h.logger, err)
		return
	}

	match, err := h.matchService.Create(r.Context(), service.CreateMatchInput{
		CreatorID:       sessionUser.User.ID,
		InvitedUsername: r.FormValue("invitedUsername"),
		Photo:           photo,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, match)
}

func (h *MatchHandler) Respond(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := middleware.GetSessionUser(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	matchID, ok := h.matchID(w, r)
	if !ok {
		return
	}

	input := service.RespondInput{
		MatchID:     matchID,
		ResponderID: sessionUser.User.ID,
	}
	if err := h.parseForm(w, r); err != nil {
		// An unreadable form can only come from a failed upload.
		input.Accept = true
		input.UploadErr = err
	} else {
		input.Accept = r.FormValue("accept") == "true"
		if input.Accept {
			photo, err := h.readPhoto(r)
			switch {
			case err == nil:
				input.Photo = photo
			case !errors.Is(err, errNoPhoto):
				input.UploadErr = err
			}
		}
	}
	match, err := h.matchService.Respond(r.Context(), input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if input.Accept {
		writeMessage(w, http.StatusOK, "Match accepted")
		return
	}
	h.logger.Debug("match declined", zap.String("match_id", match.ID.String()))
	writeMessage(w, http.StatusOK, "Match declined")
}

func (h *MatchHandler) Compare(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := middleware.GetSessionUser(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	matchID, ok := h.matchID(w, r)
	if !ok {
		return
	}

	result, err := h.matchService.Compare(r.Context(), matchID, sessionUser.User.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := middleware.GetSessionUser(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	matches, err := h.matchService.List(r.Context(), sessionUser.User.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, matches)
}

func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := middleware.GetSessionUser(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	matchID, ok := h.matchID(w, r)
	if !ok {
		return
	}

	match, err := h.matchService.Get(r.Context(), matchID, sessionUser.User.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, match)
}

func (h *MatchHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	users, err := h.matchService.Leaderboard(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// matchID parses the {id} path segment. A malformed id cannot name a match,
// so it is reported as not found.
func (h *MatchHandler) matchID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Match not found")
		return uuid.Nil, false
	}
	return id, true
}

// parseForm reads the request form within the upload limit. A body that is
// not multipart is left to ParseForm and yields no photo.
func (h *MatchHandler) parseForm(w http.ResponseWriter, r *http.Request) error {
	// Room for the form fields on top of the photo itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxBytes+64*1024)

	if err := r.ParseMultipartForm(h.uploadMaxBytes); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return h.tooLarge()
		case errors.Is(err, http.ErrNotMultipart):
			return nil
		default:
			return domain.InvalidRequest("Invalid upload")
		}
	}
	return nil
}

// readPhoto validates the photo part of a parsed form. It returns
// errNoPhoto when the form has none.
func (h *MatchHandler) readPhoto(r *http.Request) (*service.Photo, error) {
	if r.MultipartForm == nil {
		return nil, errNoPhoto
	}

	file, header, err := r.FormFile(photoField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, errNoPhoto
		}
		return nil, domain.InvalidRequest("Invalid upload")
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !security.ValidateImageUpload(header.Filename, contentType) {
		return nil, domain.InvalidRequest("Only jpeg, jpg and png files are allowed")
	}
	if !security.ValidateFileSize(header.Size, h.uploadMaxBytes) {
		return nil, h.tooLarge()
	}

	data, err := io.ReadAll(io.LimitReader(file, h.uploadMaxBytes+1))
	if err != nil {
		return nil, domain.InvalidRequest("Invalid upload")
	}
	if int64(len(data)) > h.uploadMaxBytes {
		return nil, h.tooLarge()
	}
	if len(data) == 0 {
		return nil, errNoPhoto
	}

	return &service.Photo{Data: data, ContentType: contentType}, nil
}

func (h *MatchHandler) tooLarge() error {
	return domain.InvalidRequest(fmt.Sprintf("File is too large. Maximum size is %dMB", h.uploadMaxBytes/(1024*1024)))
}
