package stream

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

// ErrStreamNotFound is returned by Verify for a configured stream missing on the broker.
var ErrStreamNotFound = errors.New("stream not found")

// TopologyMismatchError reports a stream whose broker subjects differ from the configured ones.
type TopologyMismatchError struct {
	Stream string
	Want   []string
	Got    []string
}

func (e *TopologyMismatchError) Error() string {
	return fmt.Sprintf("stream %s subjects mismatch: want %v, got %v", e.Stream, e.Want, e.Got)
}

// Admin is the subset of JetStream stream management the manager needs.
type Admin interface {
	Delete(ctx context.Context, name string) error
	Create(ctx context.Context, cfg jetstream.StreamConfig) (*jetstream.StreamInfo, error)
	Info(ctx context.Context, name string) (*jetstream.StreamInfo, error)
}

// Manager declares and checks streams on the broker.
type Manager struct {
	admin Admin
	cfg   Config
	log   *zap.Logger
}

func NewManager(admin Admin, cfg Config, log *zap.Logger) *Manager {
	return &Manager{admin: admin, cfg: cfg, log: log}
}

// EnsureStream deletes and recreates the stream, then reads it back.
// Messages still stored in an existing stream are lost.
func (m *Manager) EnsureStream(ctx context.Context, cfg StreamConfig) (*jetstream.StreamInfo, error) {
	if err := validateStream(cfg); err != nil {
		return nil, err
	}
	log := m.log.With(zap.String("stream", cfg.Name))

	if err := m.admin.Delete(ctx, cfg.Name); err != nil {
		if !errors.Is(err, jetstream.ErrStreamNotFound) {
			return nil, fmt.Errorf("delete stream %s: %w", cfg.Name, err)
		}
		log.Debug("stream did not exist")
	} else {
		log.Warn("existing stream deleted")
	}

	if _, err := m.admin.Create(ctx, cfg.jetStream()); err != nil {
		return nil, fmt.Errorf("create stream %s: %w", cfg.Name, err)
	}

	info, err := m.admin.Info(ctx, cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("read back stream %s: %w", cfg.Name, err)
	}
	if err := compareSubjects(cfg, info); err != nil {
		return info, err
	}

	log.Info("stream reconciled",
		zap.Strings("subjects", info.Config.Subjects),
		zap.Duration("max_age", info.Config.MaxAge),
		zap.Int64("max_messages", info.Config.MaxMsgs))
	return info, nil
}

// Reconcile runs EnsureStream for the named streams, or for all configured
// streams when no name is given. It is an operator action and is never run
// at service startup.
func (m *Manager) Reconcile(ctx context.Context, names ...string) ([]*jetstream.StreamInfo, error) {
	targets, err := m.selectStreams(names)
	if err != nil {
		return nil, err
	}

	infos := make([]*jetstream.StreamInfo, 0, len(targets))
	for _, cfg := range targets {
		info, err := m.EnsureStream(ctx, cfg)
		if err != nil {
			return infos, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Verify checks without side effects that every configured stream exists
// with the configured subjects.
func (m *Manager) Verify(ctx context.Context) error {
	var errs []error
	for _, cfg := range m.cfg.Streams() {
		info, err := m.admin.Info(ctx, cfg.Name)
		if err != nil {
			if errors.Is(err, jetstream.ErrStreamNotFound) {
				errs = append(errs, fmt.Errorf("%w: %s", ErrStreamNotFound, cfg.Name))
				continue
			}
			errs = append(errs, fmt.Errorf("inspect stream %s: %w", cfg.Name, err))
			continue
		}
		errs = append(errs, compareSubjects(cfg, info))
	}
	return errors.Join(errs...)
}

func (m *Manager) selectStreams(names []string) ([]StreamConfig, error) {
	all := m.cfg.Streams()
	if len(names) == 0 {
		return all, nil
	}
	out := make([]StreamConfig, 0, len(names))
	for _, name := range names {
		idx := slices.IndexFunc(all, func(s StreamConfig) bool { return s.Name == name })
		if idx < 0 {
			return nil, fmt.Errorf("stream %s is not configured", name)
		}
		out = append(out, all[idx])
	}
	return out, nil
}

func compareSubjects(cfg StreamConfig, info *jetstream.StreamInfo) error {
	want := sortedCopy(cfg.Subjects)
	got := sortedCopy(info.Config.Subjects)
	if !slices.Equal(want, got) {
		return &TopologyMismatchError{Stream: cfg.Name, Want: want, Got: got}
	}
	return nil
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// jetStreamAdmin adapts a jetstream.JetStream handle to Admin.
type jetStreamAdmin struct {
	js jetstream.JetStream
}

func NewJetStreamAdmin(js jetstream.JetStream) Admin {
	return &jetStreamAdmin{js: js}
}

func (a *jetStreamAdmin) Delete(ctx context.Context, name string) error {
	return a.js.DeleteStream(ctx, name)
}

func (a *jetStreamAdmin) Create(ctx context.Context, cfg jetstream.StreamConfig) (*jetstream.StreamInfo, error) {
	s, err := a.js.CreateStream(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s.CachedInfo(), nil
}

func (a *jetStreamAdmin) Info(ctx context.Context, name string) (*jetstream.StreamInfo, error) {
	s, err := a.js.Stream(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.Info(ctx)
}
