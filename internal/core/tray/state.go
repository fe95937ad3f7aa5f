package tray

import (
	"fmt"

	"github.com/yndnr/trayctl/internal/core/domain"
)

// State is the interpreted value of the AutoTray switch.
type State int

const (
	// StateDefault means the value is absent; Windows auto-hides.
	StateDefault State = iota
	// StateShowAll means every icon is visible.
	StateShowAll
	// StateAutoHide means inactive icons are hidden.
	StateAutoHide
	// StateUnknown is any value outside {0, 1}.
	StateUnknown
)

// Value write targets for the switch.
const (
	ShowAllValue  uint32 = 0
	AutoHideValue uint32 = 1
)

// StateOf interprets the switch value.
func StateOf(v domain.Value) State {
	if v.IsAbsent() {
		return StateDefault
	}
	n, ok := v.DWord()
	if !ok {
		return StateUnknown
	}
	switch n {
	case ShowAllValue:
		return StateShowAll
	case AutoHideValue:
		return StateAutoHide
	default:
		return StateUnknown
	}
}

// String returns a short machine-friendly name.
func (s State) String() string {
	switch s {
	case StateDefault:
		return "default"
	case StateShowAll:
		return "show-all"
	case StateAutoHide:
		return "auto-hide"
	default:
		return "unknown"
	}
}

// Describe returns the sentence shown by the status command.
func (s State) Describe() string {
	switch s {
	case StateDefault:
		return "not set: system default (auto-hide inactive icons)"
	case StateShowAll:
		return "show all icons"
	case StateAutoHide:
		return "auto-hide inactive icons"
	default:
		return "unrecognized value"
	}
}

// IconsVisible reports whether every icon is shown.
func (s State) IconsVisible() bool {
	return s == StateShowAll
}

// DescribeValue combines the state with the raw value.
func DescribeValue(v domain.Value) string {
	st := StateOf(v)
	if v.IsAbsent() {
		return st.Describe()
	}
	return fmt.Sprintf("%s [%s]", st.Describe(), v)
}
