package media

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/hummingbird/service/internal/response"
)

// Handler holds HTTP handlers for media retrieval endpoints.
type Handler struct {
	svc *Service
	log logrus.FieldLogger
}

// NewHandler creates a new media Handler.
func NewHandler(svc *Service, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Get godoc
//
//	@Summary		Get media metadata
//	@Description	Returns the stored descriptor (id, size, name, mimetype) for a media id.
//	@Tags			media
//	@Produce		json
//	@Param			id	path		string	true	"Media id"
//	@Success		200	{object}	response.Envelope{data=Media}
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/media/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "id")

	m, err := h.svc.Get(r.Context(), key)
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "media not found")
			return
		}
		h.log.WithError(err).WithField("key", key).Error("get media failed")
		response.InternalError(w)
		return
	}

	response.OK(w, m)
}

// Download godoc
//
//	@Summary		Download media
//	@Description	Redirects to a time-limited signed URL for the stored file.
//	@Tags			media
//	@Param			id	path	string	true	"Media id"
//	@Success		302
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/media/{id}/download [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "id")

	url, err := h.svc.DownloadURL(r.Context(), key)
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "media not found")
			return
		}
		h.log.WithError(err).WithField("key", key).Error("download url failed")
		response.InternalError(w)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// Delete godoc
//
//	@Summary		Delete media (not implemented)
//	@Description	Deletion is not supported. Unknown ids return 404, known ids return 501.
//	@Tags			media
//	@Produce		json
//	@Param			id	path		string	true	"Media id"
//	@Failure		404	{object}	response.Envelope
//	@Failure		501	{object}	response.Envelope
//	@Router			/media/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "id")

	if _, err := h.svc.Get(r.Context(), key); err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "media not found")
			return
		}
		h.log.WithError(err).WithField("key", key).Error("get media failed")
		response.InternalError(w)
		return
	}

	response.NotImplemented(w, "media deletion is not supported")
}
