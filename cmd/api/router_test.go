package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hummingbird/service/internal/media"
	"github.com/hummingbird/service/internal/metrics"
	"github.com/hummingbird/service/internal/storage"
	"github.com/hummingbird/service/internal/upload"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestServer(t *testing.T, checks map[string]pinger) (*httptest.Server, *media.MemoryRepository) {
	t.Helper()
	log, _ := test.NewNullLogger()

	store, err := storage.NewDiskStorage(filepath.Join(t.TempDir(), "media"), "http://files.local", time.Minute)
	require.NoError(t, err)
	repo := media.NewMemoryRepository()

	reg := prometheus.NewRegistry()
	observer, err := metrics.NewObserver("test", reg)
	require.NoError(t, err)

	pipeline, err := upload.New(store, repo, upload.Limits{
		MaxTotalFileSize: 1 << 20,
		AllowedMimeTypes: []string{"image/*"},
	}, upload.WithObserver(observer))
	require.NoError(t, err)

	if checks == nil {
		checks = map[string]pinger{"metadata": repo, "storage": store}
	}

	srv := httptest.NewServer(newRouter(routerDeps{
		log:     log,
		uploads: upload.NewHandler(pipeline, log),
		media:   media.NewHandler(media.NewService(repo, store), log),
		checks:  checks,
		metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}))
	t.Cleanup(srv.Close)
	return srv, repo
}

func noRedirectClient() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func TestRouterUploadLookupDownload(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", "pixel.gif")
	require.NoError(t, err)
	_, err = fw.Write([]byte("GIF89a"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// CreateFormFile declares application/octet-stream, which is not an image.
	resp, err := http.Post(srv.URL+"/media", w.FormDataContentType(), bytes.NewReader(body.Bytes()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	body.Reset()
	w = multipart.NewWriter(&body)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="pixel.gif"`)
	h.Set("Content-Type", "image/gif")
	fw, err = w.CreatePart(h)
	require.NoError(t, err)
	_, err = fw.Write([]byte("GIF89a"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp, err = http.Post(srv.URL+"/media", w.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var created struct {
		Data upload.UploadResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.Data.FileID)

	resp, err = http.Get(srv.URL + "/media/" + created.Data.FileID)
	require.NoError(t, err)
	var got struct {
		Data media.Media `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.Equal(t, int64(6), got.Data.Size)
	assert.Equal(t, "pixel.gif", got.Data.Name)
	assert.Equal(t, "image/gif", got.Data.MimeType)

	resp, err = noRedirectClient().Get(srv.URL + "/media/" + created.Data.FileID + "/download")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "http://files.local/"+created.Data.FileID+"?expires=")

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/media/"+created.Data.FileID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	metricsBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Regexp(t, `test_uploads_total\{(kind="",)?outcome="accepted"\} 1`, string(metricsBody))
	assert.Contains(t, string(metricsBody), `test_uploads_total{kind="invalid_file_type",outcome="rejected"} 1`)
}

func TestRouterHealthAndReadiness(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouterReadinessReportsFailingDependency(t *testing.T) {
	srv, _ := newTestServer(t, map[string]pinger{
		"metadata": pingFunc(func(context.Context) error { return nil }),
		"storage":  pingFunc(func(context.Context) error { return errors.New("bucket missing") }),
	})

	resp, err := http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var env struct {
		Error string            `json:"error"`
		Data  map[string]string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, map[string]string{"metadata": "ok", "storage": "unavailable"}, env.Data)
	assert.NotContains(t, env.Error, "bucket")
}

func TestRouterServesSwagger(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/swagger/doc.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Contains(t, doc["paths"], "/media")
}
