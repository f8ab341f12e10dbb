package media

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hummingbird/service/internal/response"
)

func newTestRouter(t *testing.T, signer URLSigner) http.Handler {
	t.Helper()
	log, _ := test.NewNullLogger()
	h := NewHandler(seededService(t, signer), log)

	r := chi.NewRouter()
	r.Get("/media/{id}", h.Get)
	r.Delete("/media/{id}", h.Delete)
	r.Get("/media/{id}/download", h.Download)
	return r
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHandlerGet(t *testing.T) {
	r := newTestRouter(t, &fakeSigner{})

	rec := serve(r, http.MethodGet, "/media/known")
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Success bool  `json:"success"`
		Data    Media `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.True(t, env.Success)
	assert.Equal(t, "known", env.Data.Key)
	assert.Equal(t, int64(10), env.Data.Size)
	assert.Equal(t, "a.png", env.Data.Name)
	assert.Equal(t, "image/png", env.Data.MimeType)

	rec = serve(r, http.MethodGet, "/media/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerDownload(t *testing.T) {
	r := newTestRouter(t, &fakeSigner{})

	rec := serve(r, http.MethodGet, "/media/known/download")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://storage.example/known?sig=1", rec.Header().Get("Location"))

	rec = serve(r, http.MethodGet, "/media/unknown/download")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
}

func TestHandlerDownloadSignerFailure(t *testing.T) {
	r := newTestRouter(t, &fakeSigner{err: errors.New("credentials expired")})

	rec := serve(r, http.MethodGet, "/media/known/download")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var env response.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, "internal server error", env.Error)
}

func TestHandlerDelete(t *testing.T) {
	r := newTestRouter(t, &fakeSigner{})

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodDelete, "/media/unknown").Code)
	assert.Equal(t, http.StatusNotImplemented, serve(r, http.MethodDelete, "/media/known").Code)
}
