package upload

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/hummingbird/service/internal/response"
)

// Ingester runs one upload. *Pipeline implements it.
type Ingester interface {
	Ingest(ctx context.Context, body io.Reader, contentType string) Outcome
}

// Handler serves the upload endpoint.
type Handler struct {
	ingester Ingester
	log      logrus.FieldLogger
}

// NewHandler creates a new upload Handler.
func NewHandler(ingester Ingester, log logrus.FieldLogger) *Handler {
	return &Handler{ingester: ingester, log: log}
}

// UploadResponse is returned for accepted uploads.
type UploadResponse struct {
	FileID string `json:"fileId"`
}

// Upload godoc
//
//	@Summary		Upload media
//	@Description	Streams a single file from a multipart/form-data body into object storage.
//	@Tags			media
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"File to upload"
//	@Success		202		{object}	response.Envelope{data=UploadResponse}
//	@Failure		400		{object}	response.Envelope
//	@Failure		413		{object}	response.Envelope
//	@Failure		415		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/media [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	out := h.ingester.Ingest(r.Context(), r.Body, r.Header.Get("Content-Type"))

	switch o := out.(type) {
	case Accepted:
		response.Accepted(w, UploadResponse{FileID: o.Key})
	case Rejected:
		h.log.WithError(o.Err).WithFields(logrus.Fields{
			"kind":   o.Kind,
			"status": o.Status,
		}).Info("upload rejected")
		response.Error(w, o.Status, o.Message)
	case Failed:
		entry := h.log.WithError(o.Cause)
		if errors.Is(o.Cause, context.Canceled) || errors.Is(o.Cause, context.DeadlineExceeded) {
			entry.Warn("upload aborted")
		} else {
			entry.Error("upload failed")
		}
		response.InternalError(w)
	default:
		h.log.Errorf("unexpected upload outcome %T", out)
		response.InternalError(w)
	}
}
