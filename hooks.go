package apisync

import (
	"sync"

	"github.com/agentstation/apisync/pkg/gateway"
	"github.com/agentstation/apisync/pkg/reconciler"
)

// Hook function types for reconciliation events
type (
	// ResourceCreatedHook is called when a resource is created
	ResourceCreatedHook func(resource gateway.Resource)

	// ModelChangedHook is called when a model is created, updated or deleted
	ModelChangedHook func(name string, action reconciler.ModelAction)

	// RollbackHook is called after a failed import deleted its API
	RollbackHook func(api gateway.RestAPI, cause error)
)

// hooks manages event callbacks
type hooks struct {
	mu                sync.RWMutex
	onResourceCreated []ResourceCreatedHook
	onModelChanged    []ModelChangedHook
	onRollback        []RollbackHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnResourceCreated registers a callback for created resources
func (h *hooks) OnResourceCreated(fn ResourceCreatedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onResourceCreated = append(h.onResourceCreated, fn)
}

// OnModelChanged registers a callback for model changes
func (h *hooks) OnModelChanged(fn ModelChangedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onModelChanged = append(h.onModelChanged, fn)
}

// OnRollback registers a callback for rolled back imports
func (h *hooks) OnRollback(fn RollbackHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRollback = append(h.onRollback, fn)
}

func (h *hooks) resourceCreated(resource gateway.Resource) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onResourceCreated {
		hook(resource)
	}
}

func (h *hooks) modelChanged(name string, action reconciler.ModelAction) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onModelChanged {
		hook(name, action)
	}
}

func (h *hooks) rolledBack(api gateway.RestAPI, cause error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onRollback {
		hook(api, cause)
	}
}
