package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery so dispatch never re-reflects on a hot path.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	onInit                []OnInit
	onShutdown            []OnShutdown
	onTransactionPosted   []OnTransactionPosted
	onTransactionRejected []OnTransactionRejected
	onTransactionVoided   []OnTransactionVoided
	onEvidenceQueried     []OnEvidenceQueried
	onBalancesRebuilding  []OnBalancesRebuilding
	onBalancesRebuilt     []OnBalancesRebuilt
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnTransactionPosted); ok {
		r.onTransactionPosted = append(r.onTransactionPosted, v)
	}
	if v, ok := p.(OnTransactionRejected); ok {
		r.onTransactionRejected = append(r.onTransactionRejected, v)
	}
	if v, ok := p.(OnTransactionVoided); ok {
		r.onTransactionVoided = append(r.onTransactionVoided, v)
	}
	if v, ok := p.(OnEvidenceQueried); ok {
		r.onEvidenceQueried = append(r.onEvidenceQueried, v)
	}
	if v, ok := p.(OnBalancesRebuilding); ok {
		r.onBalancesRebuilding = append(r.onBalancesRebuilding, v)
	}
	if v, ok := p.(OnBalancesRebuilt); ok {
		r.onBalancesRebuilt = append(r.onBalancesRebuilt, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnTransactionPosted)(nil)).Elem(), "OnTransactionPosted")
	checkInterface(reflect.TypeOf((*OnTransactionRejected)(nil)).Elem(), "OnTransactionRejected")
	checkInterface(reflect.TypeOf((*OnTransactionVoided)(nil)).Elem(), "OnTransactionVoided")
	checkInterface(reflect.TypeOf((*OnEvidenceQueried)(nil)).Elem(), "OnEvidenceQueried")
	checkInterface(reflect.TypeOf((*OnBalancesRebuilding)(nil)).Elem(), "OnBalancesRebuilding")
	checkInterface(reflect.TypeOf((*OnBalancesRebuilt)(nil)).Elem(), "OnBalancesRebuilt")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, book interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, book)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitTransactionPosted emits a transaction-posted event.
func (r *Registry) EmitTransactionPosted(ctx context.Context, txn interface{}) {
	r.mu.RLock()
	plugins := r.onTransactionPosted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransactionPosted(ctx, txn)
		}); err != nil {
			r.logger.Warn("plugin OnTransactionPosted failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitTransactionRejected emits a transaction-rejected event.
func (r *Registry) EmitTransactionRejected(ctx context.Context, reason error) {
	r.mu.RLock()
	plugins := r.onTransactionRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransactionRejected(ctx, reason)
		}); err != nil {
			r.logger.Warn("plugin OnTransactionRejected failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitTransactionVoided emits a transaction-voided event.
func (r *Registry) EmitTransactionVoided(ctx context.Context, original, voiding interface{}) {
	r.mu.RLock()
	plugins := r.onTransactionVoided
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransactionVoided(ctx, original, voiding)
		}); err != nil {
			r.logger.Warn("plugin OnTransactionVoided failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitEvidenceQueried emits an evidence-queried event.
func (r *Registry) EmitEvidenceQueried(ctx context.Context, matchType string, evidenceCount, resultCount int) {
	r.mu.RLock()
	plugins := r.onEvidenceQueried
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEvidenceQueried(ctx, matchType, evidenceCount, resultCount)
		}); err != nil {
			r.logger.Warn("plugin OnEvidenceQueried failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitBalancesRebuilding emits a rebuild-starting event.
func (r *Registry) EmitBalancesRebuilding(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onBalancesRebuilding
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBalancesRebuilding(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnBalancesRebuilding failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitBalancesRebuilt emits a rebuild-committed event.
func (r *Registry) EmitBalancesRebuilt(ctx context.Context, rowsWritten int) {
	r.mu.RLock()
	plugins := r.onBalancesRebuilt
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBalancesRebuilt(ctx, rowsWritten)
		}); err != nil {
			r.logger.Warn("plugin OnBalancesRebuilt failed", "plugin", p.Name(), "error", err)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the posting pipeline indefinitely.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
