package main

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Service is the lifecycle contract of long-lived components.
type Service interface {
	// Name identifies the service in logs and errors.
	Name() string
	// Initialize runs once all dependencies are wired.
	Initialize(ctx context.Context) error
	// Shutdown releases resources.
	Shutdown() error
}

type serviceEntry struct {
	service  Service
	name     string
	critical bool // failure to initialize aborts startup
	started  bool // Initialize was attempted; only started services are shut down
}

// ServiceRegistry starts services in registration order and stops them in reverse.
type ServiceRegistry struct {
	ctx      context.Context
	logger   *zap.Logger
	services []serviceEntry
	byName   map[string]Service
	mu       sync.RWMutex
}

func NewServiceRegistry(ctx context.Context, logger *zap.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		ctx:      ctx,
		logger:   logger,
		services: make([]serviceEntry, 0),
		byName:   make(map[string]Service),
	}
}

// Register adds a non-critical service. Duplicate names are rejected.
func (r *ServiceRegistry) Register(svc Service) error {
	return r.register(svc, false)
}

// RegisterCritical adds a service whose initialization failure aborts startup.
func (r *ServiceRegistry) RegisterCritical(svc Service) error {
	return r.register(svc, true)
}

func (r *ServiceRegistry) register(svc Service, critical bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := svc.Name()
	if _, exists := r.byName[name]; exists {
		return WrapError("ServiceRegistry", "Register", fmt.Errorf("service %q already registered", name))
	}

	r.services = append(r.services, serviceEntry{
		service:  svc,
		name:     name,
		critical: critical,
	})
	r.byName[name] = svc
	return nil
}

// Get looks a service up by name.
func (r *ServiceRegistry) Get(name string) (Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	svc, ok := r.byName[name]
	return svc, ok
}

func (r *ServiceRegistry) snapshot() []serviceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]serviceEntry, len(r.services))
	copy(entries, r.services)
	return entries
}

func (r *ServiceRegistry) markStarted(i int) {
	r.mu.Lock()
	r.services[i].started = true
	r.mu.Unlock()
}

// InitializeAll initializes in registration order. A critical failure stops
// and is returned; other failures are logged and the service runs degraded.
func (r *ServiceRegistry) InitializeAll() error {
	for i, entry := range r.snapshot() {
		r.markStarted(i)
		if err := entry.service.Initialize(r.ctx); err != nil {
			if entry.critical {
				r.logger.Error("critical service failed to initialize", zap.String("service", entry.name), zap.Error(err))
				return WrapError("ServiceRegistry", "InitializeAll", fmt.Errorf("critical service %q failed: %w", entry.name, err))
			}
			r.logger.Warn("service failed to initialize (degraded)", zap.String("service", entry.name), zap.Error(err))
			continue
		}
		r.logger.Debug("service initialized", zap.String("service", entry.name))
	}
	return nil
}

// ShutdownAll stops started services in reverse registration order. Errors
// are logged and do not stop the remaining shutdowns.
func (r *ServiceRegistry) ShutdownAll() {
	entries := r.snapshot()
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if !entry.started {
			continue
		}
		if err := entry.service.Shutdown(); err != nil {
			r.logger.Warn("service shutdown error", zap.String("service", entry.name), zap.Error(err))
		}
	}
}
