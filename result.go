package apisync

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/utc"
)

// State is the lifecycle state of an import.
type State string

// Import states. An import moves from NotCreated to Created once the API
// exists, to Populating while resources and models are built, and ends in
// Populated or, after a failure, RolledBack.
const (
	StateNotCreated State = "not_created"
	StateCreated    State = "created"
	StatePopulating State = "populating"
	StatePopulated  State = "populated"
	StateRolledBack State = "rolled_back"
)

// Stats counts the mutating calls of a run.
type Stats struct {
	ResourcesCreated  int `json:"resources_created" yaml:"resources_created"`
	ResourcesDeleted  int `json:"resources_deleted" yaml:"resources_deleted"`
	ModelsCreated     int `json:"models_created" yaml:"models_created"`
	ModelsUpdated     int `json:"models_updated" yaml:"models_updated"`
	ModelsDeleted     int `json:"models_deleted" yaml:"models_deleted"`
	MethodsCreated    int `json:"methods_created" yaml:"methods_created"`
	ParametersChanged int `json:"parameters_changed" yaml:"parameters_changed"`
}

// Total returns the number of mutating calls.
func (s Stats) Total() int {
	return s.ResourcesCreated + s.ResourcesDeleted +
		s.ModelsCreated + s.ModelsUpdated + s.ModelsDeleted +
		s.MethodsCreated + s.ParametersChanged
}

// Result represents the outcome of an Import or Update.
type Result struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	APIID     string        `json:"api_id" yaml:"api_id"`
	APIName   string        `json:"api_name,omitempty" yaml:"api_name,omitempty"`
	State     State         `json:"state" yaml:"state"`
	Stats     Stats         `json:"stats" yaml:"stats"`
	Warnings  []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	StartTime utc.Time      `json:"start_time" yaml:"start_time"`
	EndTime   utc.Time      `json:"end_time" yaml:"end_time"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// newResult creates a result with defaults.
func newResult(runID string) *Result {
	return &Result{
		RunID:     runID,
		State:     StateNotCreated,
		Warnings:  []string{},
		StartTime: utc.Now(),
	}
}

// finalize records the end time and duration.
func (r *Result) finalize() {
	r.EndTime = utc.Now()
	r.Duration = r.EndTime.Time.Sub(r.StartTime.Time)
}

// HasChanges returns true if any mutating call was made.
func (r *Result) HasChanges() bool {
	return r.Stats.Total() > 0
}

// HasWarnings returns true if best-effort steps failed.
func (r *Result) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	if !r.HasChanges() {
		return fmt.Sprintf("API %s is up to date", r.APIID)
	}

	var parts []string
	add := func(n int, what string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, what))
		}
	}
	add(r.Stats.ResourcesCreated, "resources created")
	add(r.Stats.ResourcesDeleted, "resources deleted")
	add(r.Stats.ModelsCreated, "models created")
	add(r.Stats.ModelsUpdated, "models updated")
	add(r.Stats.ModelsDeleted, "models deleted")
	add(r.Stats.MethodsCreated, "methods created")
	add(r.Stats.ParametersChanged, "parameters changed")

	summary := fmt.Sprintf("API %s: %s", r.APIID, strings.Join(parts, ", "))
	if r.HasWarnings() {
		summary += fmt.Sprintf(" (%d warnings)", len(r.Warnings))
	}
	return summary
}
