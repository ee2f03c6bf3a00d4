package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

type component struct {
	name      string
	ready     bool
	startedAt time.Time
	readyAt   time.Time
}

type readiness struct {
	mu          sync.RWMutex
	components  map[string]*component
	readyCh     chan struct{}
	readyOnce   sync.Once
	trafficCh   chan struct{}
	trafficOnce sync.Once
	autoTraffic bool
	log         *zap.Logger
}

func newReadiness(log *zap.Logger, isKubernetes bool) *readiness {
	return &readiness{
		components:  make(map[string]*component),
		readyCh:     make(chan struct{}),
		trafficCh:   make(chan struct{}),
		autoTraffic: !isKubernetes,
		log:         log,
	}
}

func (r *readiness) AddComponent(name string) func() {
	r.mu.Lock()
	if _, exists := r.components[name]; !exists {
		r.components[name] = &component{name: name, startedAt: time.Now()}
	}
	r.mu.Unlock()

	return func() { r.markReady(name) }
}

func (r *readiness) markReady(name string) {
	r.mu.Lock()
	comp, exists := r.components[name]
	if !exists || comp.ready {
		r.mu.Unlock()
		return
	}
	comp.ready = true
	comp.readyAt = time.Now()

	allReady := true
	for _, c := range r.components {
		if !c.ready {
			allReady = false
			break
		}
	}
	count := len(r.components)
	r.mu.Unlock()

	r.log.Debug("component ready", zap.String("component", name))

	if !allReady {
		return
	}
	r.readyOnce.Do(func() {
		close(r.readyCh)
		r.log.Info("all components are ready", zap.Int("component_count", count))
	})
	if r.autoTraffic {
		r.MarkTrafficReady()
	}
}

func (r *readiness) MarkTrafficReady() {
	r.trafficOnce.Do(func() {
		close(r.trafficCh)
		r.log.Info("ready for traffic")
	})
}

func (r *readiness) IsReady() bool {
	return isClosed(r.readyCh)
}

func (r *readiness) GetStatus() ReadinessStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := ReadinessStatus{
		Ready:        r.IsReady(),
		TrafficReady: isClosed(r.trafficCh),
		Components:   make([]ComponentStatus, 0, len(r.components)),
	}
	for _, comp := range r.components {
		if status.Ready && comp.readyAt.After(status.ReadyAt) {
			status.ReadyAt = comp.readyAt
		}
		status.Components = append(status.Components, ComponentStatus{
			Name:      comp.name,
			Ready:     comp.ready,
			StartedAt: comp.startedAt,
			ReadyAt:   comp.readyAt,
		})
	}
	sort.Slice(status.Components, func(i, j int) bool {
		return status.Components[i].Name < status.Components[j].Name
	})
	return status
}

func (r *readiness) WaitReady(ctx context.Context) error {
	return wait(ctx, r.readyCh)
}

func (r *readiness) WaitForTrafficReady(ctx context.Context) error {
	return wait(ctx, r.trafficCh)
}

func wait(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
