package frontend

import (
	"sync"

	"github.com/tenacious60/aquahealthmonitor/pkg/waterhealth"
)

// Scheme is an effective color scheme after resolution.
type Scheme string

// Effective schemes.
const (
	SchemeLight Scheme = "light"
	SchemeDark  Scheme = "dark"
)

// SchemeSignal reports the platform's color scheme and notifies on change.
type SchemeSignal interface {
	Current() Scheme
	// Subscribe registers fn for change notifications and returns a
	// cancel func.
	Subscribe(fn func(Scheme)) (cancel func())
}

// StaticSignal is a SchemeSignal that never changes, for platforms without
// a scheme preference and for tests.
type StaticSignal struct {
	Scheme Scheme
}

// Current returns the fixed scheme.
func (s StaticSignal) Current() Scheme {
	if s.Scheme == "" {
		return SchemeLight
	}
	return s.Scheme
}

// Subscribe never notifies.
func (StaticSignal) Subscribe(func(Scheme)) func() {
	return func() {}
}

// ThemeResolver turns a stored theme preference into an effective scheme.
// "dark" and "light" are forced; anything else follows the platform signal,
// re-evaluated whenever the signal changes.
type ThemeResolver struct {
	signal SchemeSignal

	mu         sync.Mutex
	preference string
}

// NewThemeResolver creates a resolver following the signal, starting on the
// system preference.
func NewThemeResolver(signal SchemeSignal) *ThemeResolver {
	if signal == nil {
		signal = StaticSignal{Scheme: SchemeLight}
	}
	return &ThemeResolver{
		signal:     signal,
		preference: waterhealth.ThemeSystem,
	}
}

// SetPreference stores the user's theme preference.
func (r *ThemeResolver) SetPreference(preference string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preference = preference
}

// Preference returns the stored preference.
func (r *ThemeResolver) Preference() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.preference
}

// Resolve returns the effective scheme for the current preference.
func (r *ThemeResolver) Resolve() Scheme {
	r.mu.Lock()
	preference := r.preference
	r.mu.Unlock()

	switch preference {
	case waterhealth.ThemeDark:
		return SchemeDark
	case waterhealth.ThemeLight:
		return SchemeLight
	default:
		return r.signal.Current()
	}
}

// Subscribe notifies fn with the re-resolved scheme whenever the platform
// signal changes. Forced preferences mask signal changes.
func (r *ThemeResolver) Subscribe(fn func(Scheme)) (cancel func()) {
	return r.signal.Subscribe(func(Scheme) {
		fn(r.Resolve())
	})
}
