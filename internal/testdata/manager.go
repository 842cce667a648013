package testdata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/talentinsight/ai-quality-kit-sub003/internal/kvstore"
)

// Ingestor is the backend contract the Manager drives. *Client implements it.
type Ingestor interface {
	Upload(ctx context.Context, files map[Artifact]File) (*IngestResult, error)
	IngestURLs(ctx context.Context, urls map[Artifact]string) (*IngestResult, error)
	Paste(ctx context.Context, texts map[Artifact]string) (*IngestResult, error)
	Meta(ctx context.Context, id string) (*Bundle, error)
}

// Manager owns the intake state: the last ingestion result, the metadata on
// display and the current notice. It allows one operation in flight at a
// time and never retries.
type Manager struct {
	backend Ingestor
	store   kvstore.Store
	log     *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	busy  bool
	state State
}

// NewManager returns a Manager. store holds the last used bundle id.
func NewManager(backend Ingestor, store kvstore.Store, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{backend: backend, store: store, log: log, now: time.Now}
}

// Upload ingests files. Entries without data are left out of the request.
func (m *Manager) Upload(ctx context.Context, files map[Artifact]File) (*IngestResult, error) {
	out := map[Artifact]File{}
	for a, f := range files {
		if !a.Valid() || len(f.Data) == 0 {
			continue
		}
		out[a] = f
	}
	return m.ingest(ctx, OpUpload, len(out), func(ctx context.Context) (*IngestResult, error) {
		return m.backend.Upload(ctx, out)
	})
}

// IngestURLs ingests artifacts fetched by the server. URLs are trimmed and
// blank ones are left out of the request.
func (m *Manager) IngestURLs(ctx context.Context, urls map[Artifact]string) (*IngestResult, error) {
	out := trimmed(urls)
	return m.ingest(ctx, OpURL, len(out), func(ctx context.Context) (*IngestResult, error) {
		return m.backend.IngestURLs(ctx, out)
	})
}

// Paste ingests inline content. Text is trimmed and blank entries are left
// out of the request.
func (m *Manager) Paste(ctx context.Context, texts map[Artifact]string) (*IngestResult, error) {
	out := trimmed(texts)
	return m.ingest(ctx, OpPaste, len(out), func(ctx context.Context) (*IngestResult, error) {
		return m.backend.Paste(ctx, out)
	})
}

func trimmed(in map[Artifact]string) map[Artifact]string {
	out := map[Artifact]string{}
	for a, v := range in {
		if !a.Valid() {
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			out[a] = v
		}
	}
	return out
}

func (m *Manager) ingest(ctx context.Context, op Op, n int, call func(context.Context) (*IngestResult, error)) (*IngestResult, error) {
	if n == 0 {
		return nil, m.rejectEmpty(op)
	}
	if err := m.begin(); err != nil {
		return nil, err
	}

	res, err := call(ctx)
	if err != nil {
		m.log.Warn("test data ingestion failed", "op", string(op), "kind", KindOf(err).String(), "error", err)
		m.finishAndRelease(func(s *State) { s.Notice = Notice{Level: LevelError, Text: Message(err)} })
		return nil, err
	}

	if err := m.store.Set(kvstore.KeyLastTestdataID, res.TestdataID); err != nil {
		m.log.Warn("cannot persist last test data id", "testdata_id", res.TestdataID, "error", err)
	}
	m.log.Info("test data ingested", "op", string(op), "testdata_id", res.TestdataID, "artifacts", len(res.Artifacts))
	m.finishAndRelease(func(s *State) {
		s.Result = res
		s.Meta = nil
		s.Notice = Notice{Level: LevelSuccess, Text: op.successText(res.TestdataID)}
	})
	return res, nil
}

// Validate fetches and displays the metadata of bundle id. A blank id does
// nothing. Failures replace the notice but keep the last ingestion result.
func (m *Manager) Validate(ctx context.Context, id string) (*Bundle, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	if err := m.begin(); err != nil {
		return nil, err
	}

	b, err := m.backend.Meta(ctx, id)
	if err != nil {
		m.log.Warn("test data validation failed", "testdata_id", id, "kind", KindOf(err).String(), "error", err)
		m.finishAndRelease(func(s *State) { s.Notice = Notice{Level: LevelError, Text: Message(err)} })
		return nil, err
	}

	notice := Notice{Level: LevelInfo, Text: fmt.Sprintf("Test data %s is valid.", b.TestdataID)}
	switch now := m.now(); {
	case b.ExpiredAt(now):
		// The server still serves it, but the local clock says it is gone.
		m.log.Warn("bundle past its expiry on the local clock", "testdata_id", b.TestdataID, "expires_at", b.ExpiresAt.Time)
		notice = Notice{Level: LevelError, Text: fmt.Sprintf(
			"Test data %s expired at %s. Ingest the data again before starting a run.",
			b.TestdataID, b.ExpiresAt.UTC().Format(time.RFC3339))}
	case !b.ExpiresAt.IsZero():
		notice.Text = fmt.Sprintf("Test data %s is valid, expires in %s.", b.TestdataID, b.Remaining(now).Round(time.Minute))
	}
	m.finishAndRelease(func(s *State) {
		s.Meta = b
		s.Notice = notice
	})
	return b, nil
}

// LastID returns the persisted id of the most recent successful ingestion.
func (m *Manager) LastID() string {
	v, _, err := m.store.Get(kvstore.KeyLastTestdataID)
	if err != nil {
		m.log.Warn("cannot read last test data id", "error", err)
		return ""
	}
	return v
}

// Busy reports whether an operation is in flight.
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

// State returns a snapshot of what the panel shows.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return ErrBusy
	}
	m.busy = true
	return nil
}

// rejectEmpty reports an empty submission. The notice of an operation in
// flight is left alone.
func (m *Manager) rejectEmpty(op Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return ErrBusy
	}
	err := &Error{Op: op, Kind: NoInputProvided}
	m.state.Notice = Notice{Level: LevelError, Text: err.Message()}
	return err
}

func (m *Manager) finishAndRelease(update func(*State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	update(&m.state)
	m.busy = false
}
