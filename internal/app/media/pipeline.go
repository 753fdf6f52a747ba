// Package media moves attachments from client bytes to a retrievable URL
// off the broadcast path: buffer, upload, shorten, persist, complete.
//
// Failure policy: an attachment sent over the socket always ends in exactly
// one completed message. When the upload fails the message still goes out
// with the attachment marked failed and no remote URL. The synchronous HTTP
// path instead reports the failure to its caller and completes nothing.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/dkeye/chatrelay/internal/telemetry"
)

var ErrClosed = errors.New("media pipeline closed")

type Config struct {
	TempDir        string
	MaxBytes       int64
	KeyPrefix      string
	PublicBaseURL  string
	UploadTimeout  time.Duration
	ShortenTimeout time.Duration
	StoreTimeout   time.Duration
}

// Job is one attachment submission.
type Job struct {
	Room         domain.RoomName
	Nickname     string
	Text         string
	OriginalName string
	// KindHint is what the client claimed; sniffed content wins.
	KindHint domain.AttachmentKind
	// Size is the declared payload size, -1 when unknown.
	Size int64
	Body io.Reader
}

type Pipeline struct {
	cfg       Config
	objects   core.ObjectStore
	shortener core.Shortener
	history   core.HistoryStore

	now   func() time.Time
	newID func() string

	mu     sync.RWMutex
	closed bool
	wg     conc.WaitGroup
	done   chan domain.Message
}

func NewPipeline(cfg Config, objects core.ObjectStore, shortener core.Shortener, history core.HistoryStore) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		objects:   objects,
		shortener: shortener,
		history:   history,
		now:       time.Now,
		newID:     uuid.NewString,
		done:      make(chan domain.Message, 64),
	}
}

// Completions delivers every finished asynchronous job. It is closed by Close.
func (p *Pipeline) Completions() <-chan domain.Message { return p.done }

// CheckSize rejects a declared payload over the cap before anything is buffered.
func (p *Pipeline) CheckSize(size int64) error {
	if size > p.cfg.MaxBytes {
		return fmt.Errorf("%w: %d > %d bytes", domain.ErrPayloadTooLarge, size, p.cfg.MaxBytes)
	}
	return nil
}

// Submit runs job in the background and returns immediately. The job
// outlives ctx cancellation; only the per-stage timeouts bound it.
func (p *Pipeline) Submit(ctx context.Context, job Job) error {
	if err := p.CheckSize(job.Size); err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	ctx = context.WithoutCancel(ctx)
	p.wg.Go(func() {
		telemetry.AddInFlight(1)
		defer telemetry.AddInFlight(-1)

		att, err := p.Process(ctx, job)
		if err != nil {
			log.Warn().Err(err).Str("module", "app.media").Str("room", string(job.Room)).Str("attachment", att.ID).Msg("attachment degraded to failed")
		}
		msg, _ := p.finalize(ctx, job, att)
		p.done <- msg
	})
	return nil
}

// Deliver runs job synchronously. Any upload or storage failure is returned
// and nothing is persisted; the caller broadcasts the returned message.
func (p *Pipeline) Deliver(ctx context.Context, job Job) (domain.Message, error) {
	if err := p.CheckSize(job.Size); err != nil {
		return domain.Message{}, err
	}
	att, err := p.Process(ctx, job)
	if err != nil {
		return domain.Message{}, err
	}
	return p.finalize(ctx, job, att)
}

// Process buffers, uploads and shortens. The returned attachment always
// carries its id and original name; on error its status is failed.
func (p *Pipeline) Process(ctx context.Context, job Job) (domain.Attachment, error) {
	att := domain.Attachment{
		ID:           p.newID(),
		OriginalName: filepath.Base(job.OriginalName),
		Kind:         job.KindHint,
		Status:       domain.AttachmentFailed,
	}
	if att.Kind == "" {
		att.Kind = domain.KindImage
	}

	tmp, err := p.buffer(att.ID, job.Body)
	if err != nil {
		if errors.Is(err, domain.ErrPayloadTooLarge) {
			return att, err
		}
		return att, fmt.Errorf("%w: buffer: %w", domain.ErrUploadFailed, err)
	}
	defer p.discard(tmp)

	remoteURL, kind, err := p.upload(ctx, att.ID, att.OriginalName, tmp)
	if err != nil {
		telemetry.Inc(telemetry.UploadsFailed)
		return att, fmt.Errorf("%w: %w", domain.ErrUploadFailed, err)
	}
	telemetry.Inc(telemetry.UploadsSucceeded)
	att.Kind = kind
	att.RemoteURL = remoteURL
	att.ShortURL = p.shorten(ctx, remoteURL)
	att.Status = domain.AttachmentOK
	return att, nil
}

func (p *Pipeline) buffer(id string, body io.Reader) (string, error) {
	if body == nil {
		return "", errors.New("empty body")
	}
	f, err := os.CreateTemp(p.cfg.TempDir, "upload-"+id+"-*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	n, err := io.Copy(f, io.LimitReader(body, p.cfg.MaxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > p.cfg.MaxBytes {
		err = fmt.Errorf("%w: more than %d bytes", domain.ErrPayloadTooLarge, p.cfg.MaxBytes)
	}
	if err != nil {
		p.discard(name)
		return "", err
	}
	return name, nil
}

func (p *Pipeline) discard(name string) {
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Error().Err(err).Str("module", "app.media").Str("file", name).Msg("failed to remove temp buffer")
	}
}

func (p *Pipeline) upload(ctx context.Context, id, originalName, tmp string) (string, domain.AttachmentKind, error) {
	f, err := os.Open(tmp)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", "", fmt.Errorf("sniff: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", "", err
	}

	ext := mt.Extension()
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(originalName))
	}
	key := path.Join(p.cfg.KeyPrefix, id+ext)

	ctx, cancel := context.WithTimeout(ctx, p.cfg.UploadTimeout)
	defer cancel()
	var putErr error
	telemetry.TimeFunc(telemetry.UploadDuration, func() {
		_, putErr = p.objects.Put(ctx, key, f, mt.String())
	})
	if putErr != nil {
		return "", "", putErr
	}
	log.Info().Str("module", "app.media").Str("attachment", id).Str("key", key).Msg("uploaded")
	return strings.TrimRight(p.cfg.PublicBaseURL, "/") + "/" + key, domain.KindFromMIME(mt.String()), nil
}

// shorten never fails: the full URL stands in for the short one.
func (p *Pipeline) shorten(ctx context.Context, remoteURL string) string {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ShortenTimeout)
	defer cancel()
	short, err := p.shortener.Shorten(ctx, remoteURL)
	if err != nil || short == "" {
		telemetry.Inc(telemetry.ShortenFallbacks)
		log.Debug().Err(err).Str("module", "app.media").Str("url", remoteURL).Msg("shorten fallback to full url")
		return remoteURL
	}
	return short
}

func (p *Pipeline) finalize(ctx context.Context, job Job, att domain.Attachment) (domain.Message, error) {
	msg := domain.Message{
		Room:       job.Room,
		Nickname:   job.Nickname,
		Text:       job.Text,
		Timestamp:  p.now(),
		Attachment: &att,
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()
	stored, err := p.history.Append(ctx, msg)
	if err != nil {
		telemetry.StoreFailure("append")
		log.Error().Err(err).Str("module", "app.media").Str("room", string(job.Room)).Str("attachment", att.ID).Msg("failed to persist attachment message")
		return msg, err
	}
	return stored, nil
}

// Close stops accepting jobs, waits for in-flight ones and closes
// Completions. Completions must keep being drained until it is closed.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	close(p.done)
}
