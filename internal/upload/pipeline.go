// Package upload ingests single-file multipart uploads: it validates the
// stream while it flows, hands the file to object storage and records the
// descriptor in the metadata store.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hummingbird/service/internal/media"
)

// Storage is the object store the pipeline writes to. Put must consume r
// until EOF or error and report the number of bytes it persisted.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (int64, error)
	Delete(ctx context.Context, key string) error
}

// MetadataStore records descriptors of stored files.
type MetadataStore interface {
	Put(ctx context.Context, m media.Media) error
}

// Observer is notified once per Ingest call.
type Observer interface {
	Observe(o Outcome, elapsed time.Duration)
}

const (
	cleanupTimeout = 10 * time.Second
	recordTimeout  = 10 * time.Second
)

// Pipeline is safe for concurrent use. Each Ingest call keeps its own state.
type Pipeline struct {
	storage           Storage
	metadata          MetadataStore
	limits            Limits
	classify          ClassifyFunc
	newKey            func() string
	log               logrus.FieldLogger
	observer          Observer
	now               func() time.Time
	invalidTypeStatus int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClassifier replaces DefaultClassifier.
func WithClassifier(fn ClassifyFunc) Option {
	return func(p *Pipeline) { p.classify = fn }
}

// WithKeyFunc replaces the random UUID key generator.
func WithKeyFunc(fn func() string) Option {
	return func(p *Pipeline) { p.newKey = fn }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Pipeline) { p.log = log }
}

func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithInvalidTypeStatus sets the status attached to disallowed file types.
func WithInvalidTypeStatus(status int) Option {
	return func(p *Pipeline) { p.invalidTypeStatus = status }
}

// New builds a Pipeline. It fails when limits are unusable.
func New(storage Storage, metadata MetadataStore, limits Limits, opts ...Option) (*Pipeline, error) {
	if storage == nil || metadata == nil {
		return nil, errors.New("upload: storage and metadata store are required")
	}
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("upload: invalid limits: %w", err)
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	p := &Pipeline{
		storage:           storage,
		metadata:          metadata,
		limits:            limits.withDefaults(),
		classify:          DefaultClassifier,
		newKey:            uuid.NewString,
		log:               discard,
		now:               time.Now,
		invalidTypeStatus: http.StatusUnsupportedMediaType,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ingestion is the per-call state of one Ingest.
type ingestion struct {
	files  int
	bytes  int64
	key    string
	stored *media.Media
	// typeErr holds a disallowed file part that was skipped; it is reported
	// only if nothing ranked above it turns up later in the stream.
	typeErr error
}

// Ingest consumes body, a multipart/form-data stream described by
// contentType, and returns exactly one of Accepted, Rejected or Failed.
func (p *Pipeline) Ingest(ctx context.Context, body io.Reader, contentType string) (out Outcome) {
	start := p.now()
	defer func() {
		if p.observer != nil {
			p.observer.Observe(out, p.now().Sub(start))
		}
	}()

	boundary, err := boundaryOf(contentType)
	if err != nil {
		return p.reject(err)
	}

	in := &ingestion{}
	if err := p.parse(ctx, multipart.NewReader(body, boundary), in); err != nil {
		return p.abort(ctx, in, err)
	}
	if in.typeErr != nil {
		return p.abort(ctx, in, in.typeErr)
	}
	if in.stored == nil {
		return p.reject(newError(CodeMissingFile, http.StatusBadRequest, errors.New("no file part in form")))
	}
	if err := ctx.Err(); err != nil {
		return p.abort(ctx, in, err)
	}

	// From here on the object is never deleted: the descriptor write may land
	// even when it reports an error.
	m := *in.stored
	m.CreatedAt = p.now().UTC()
	if err := p.record(ctx, m); err != nil {
		p.log.WithError(err).WithField("key", m.Key).Error("metadata write failed, stored object is orphaned")
		return Failed{Cause: fmt.Errorf("record metadata for %s: %w", m.Key, err)}
	}

	p.log.WithFields(logrus.Fields{"key": m.Key, "size": m.Size, "mimetype": m.MimeType}).Debug("upload accepted")
	return Accepted{Key: m.Key, Media: m}
}

// parse walks every part until the closing boundary so that violations after
// the file part are still caught.
func (p *Pipeline) parse(ctx context.Context, mr *multipart.Reader, in *ingestion) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		part, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return newError(CodeMalformedMultipart, http.StatusBadRequest, err)
		}

		// The part is not drained on error: the rest of the body is abandoned.
		if err := p.handlePart(ctx, in, part); err != nil {
			return err
		}
		part.Close()
	}
}

func (p *Pipeline) handlePart(ctx context.Context, in *ingestion, part *multipart.Part) error {
	filename, isFile, err := fileNameOf(part)
	if err != nil {
		return newError(CodeMalformedMultipart, http.StatusBadRequest, err)
	}
	if !isFile {
		return p.drainField(part)
	}

	in.files++
	if in.files > p.limits.MaxFiles {
		return newError(CodeMaxFilesExceeded, http.StatusBadRequest,
			fmt.Errorf("file part %d exceeds limit of %d", in.files, p.limits.MaxFiles))
	}

	mimetype := part.Header.Get("Content-Type")
	if !p.limits.Allows(mimetype) {
		if err := p.skip(in, part); err != nil {
			return err
		}
		in.typeErr = newError(CodeInvalidFileType, p.invalidTypeStatus, fmt.Errorf("mimetype %q is not allowed", mimetype))
		return nil
	}

	return p.store(ctx, in, part, filename, mimetype)
}

func (p *Pipeline) store(ctx context.Context, in *ingestion, part io.Reader, filename, mimetype string) error {
	key := p.newKey()
	in.key = key

	mr := &meteredReader{r: part, limit: p.limits.MaxTotalFileSize - in.bytes}
	n, err := p.storage.Put(ctx, key, mr, mimetype)
	in.bytes += mr.n

	switch {
	case mr.exceeded:
		return newError(CodeTotalSizeExceeded, http.StatusRequestEntityTooLarge,
			fmt.Errorf("file exceeds %d bytes", p.limits.MaxTotalFileSize))
	case mr.readErr != nil:
		return newError(CodeMalformedMultipart, http.StatusBadRequest, mr.readErr)
	case err != nil:
		return fmt.Errorf("store object %s: %w", key, err)
	case n != mr.n:
		return fmt.Errorf("store object %s: storage reported %d bytes, read %d", key, n, mr.n)
	}

	in.stored = &media.Media{Key: key, Size: mr.n, Name: filename, MimeType: mimetype}
	return nil
}

// skip discards a file part without storing it. Its bytes still count
// against MaxTotalFileSize.
func (p *Pipeline) skip(in *ingestion, part io.Reader) error {
	mr := &meteredReader{r: part, limit: p.limits.MaxTotalFileSize - in.bytes}
	_, _ = io.Copy(io.Discard, mr)
	in.bytes += mr.n

	switch {
	case mr.exceeded:
		return newError(CodeTotalSizeExceeded, http.StatusRequestEntityTooLarge,
			fmt.Errorf("file exceeds %d bytes", p.limits.MaxTotalFileSize))
	case mr.readErr != nil:
		return newError(CodeMalformedMultipart, http.StatusBadRequest, mr.readErr)
	}
	return nil
}

func (p *Pipeline) drainField(part *multipart.Part) error {
	n, err := io.Copy(io.Discard, io.LimitReader(part, p.limits.MaxFieldSize+1))
	if err != nil {
		return newError(CodeMalformedMultipart, http.StatusBadRequest, err)
	}
	if n > p.limits.MaxFieldSize {
		return newError(CodeFieldTooLarge, http.StatusBadRequest,
			fmt.Errorf("field %q exceeds %d bytes", part.FormName(), p.limits.MaxFieldSize))
	}
	return nil
}

// abort removes anything written for this call and converts err to an outcome.
func (p *Pipeline) abort(ctx context.Context, in *ingestion, err error) Outcome {
	if in.key != "" {
		p.cleanup(ctx, in.key)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Failed{Cause: ctxErr}
	}
	return p.reject(err)
}

func (p *Pipeline) cleanup(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := p.storage.Delete(ctx, key); err != nil {
		p.log.WithError(err).WithField("key", key).Warn("delete of aborted upload failed")
	}
}

// record writes the descriptor detached from the request so a client
// disconnect cannot interrupt it halfway.
func (p *Pipeline) record(ctx context.Context, m media.Media) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	return p.metadata.Put(ctx, m)
}

func (p *Pipeline) reject(err error) Outcome {
	kind, ok := p.classify(err)
	if !ok {
		return Failed{Cause: err}
	}
	status, msg := Describe(kind, err, p.limits)
	return Rejected{Kind: kind, Status: status, Message: msg, Err: err}
}

func boundaryOf(contentType string) (string, error) {
	mt, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", newError(CodeMalformedMultipart, http.StatusBadRequest, fmt.Errorf("content type: %w", err))
	}
	if mt != "multipart/form-data" {
		return "", newError(CodeMalformedMultipart, http.StatusBadRequest, fmt.Errorf("content type %q is not multipart/form-data", mt))
	}
	boundary := params["boundary"]
	if boundary == "" {
		return "", newError(CodeMalformedMultipart, http.StatusBadRequest, errors.New("missing multipart boundary"))
	}
	return boundary, nil
}

// fileNameOf reads the filename parameter as sent. Part.FileName is not used
// because it strips directories from the client-supplied name.
func fileNameOf(part *multipart.Part) (string, bool, error) {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return "", false, fmt.Errorf("content disposition: %w", err)
	}
	name, ok := params["filename"]
	return name, ok, nil
}
