package domain

import (
	"strings"
)

// Action is one of the verbs the dispatcher understands.
type Action string

const (
	ActionEnable   Action = "enable"
	ActionDisable  Action = "disable"
	ActionStatus   Action = "status"
	ActionBackup   Action = "backup"
	ActionRollback Action = "rollback"
	ActionDiff     Action = "diff"
)

// ParseAction accepts the verb in any case ("Enable", "enable", "ENABLE").
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ActionEnable, ActionDisable, ActionStatus, ActionBackup, ActionRollback, ActionDiff:
		return a, nil
	default:
		return "", ErrInvalidArgument.WithDetails("unknown action " + s)
	}
}

// Change records one store mutation performed by an action.
type Change struct {
	Key    string `json:"key" yaml:"key"`
	Before string `json:"before" yaml:"before"`
	After  string `json:"after" yaml:"after"`
}

// ActionResult is the outcome reported to the user.
type ActionResult struct {
	Action      Action   `json:"action" yaml:"action"`
	Success     bool     `json:"success" yaml:"success"`
	Description string   `json:"description" yaml:"description"`
	Changes     []Change `json:"changes,omitempty" yaml:"changes,omitempty"`
	Warnings    []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewResult creates a successful result for action.
func NewResult(action Action, description string) *ActionResult {
	return &ActionResult{
		Action:      action,
		Success:     true,
		Description: description,
	}
}

// AddChange appends a mutation record.
func (r *ActionResult) AddChange(key ConfigKey, before, after Value) {
	r.Changes = append(r.Changes, Change{
		Key:    key.String(),
		Before: before.String(),
		After:  after.String(),
	})
}

// Warn appends a warning.
func (r *ActionResult) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
