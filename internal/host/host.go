// Package host is a small stand-in for the chat application that owns
// personas: it keeps persona records and the live persona fields in
// memory, persists them to SQLite, and runs a simulated generation
// lifecycle that extensions hook into.
package host

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rcliao/persona-extended/internal/model"
)

const settingsKey = "personaManagementExtended"

// ErrPersonaNotFound is returned for unknown avatar ids.
var ErrPersonaNotFound = errors.New("persona not found")

// ErrPersonaExists is returned when creating a persona that already exists.
var ErrPersonaExists = errors.New("persona already exists")

// ExtensionSettings are the global extension settings.
type ExtensionSettings struct {
	Enabled bool `json:"enabled"`
}

// DefaultExtensionSettings returns the settings of a fresh install.
func DefaultExtensionSettings() ExtensionSettings {
	return ExtensionSettings{Enabled: true}
}

// LiveGuard filters the live config before it is persisted.
type LiveGuard interface {
	Durable(live *model.LiveConfig) model.LiveConfig
}

// Host holds host state in memory. It is driven from one goroutine; the
// debounced save and generation runs take the host lock, and callers
// mutating persona data concurrently with them should use Update.
type Host struct {
	store *SQLiteStore
	log   *zap.Logger
	bus   *Bus
	guard LiveGuard

	mu       sync.Mutex
	personas map[string]*Persona
	current  string
	live     model.LiveConfig
	settings ExtensionSettings
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host's logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Host) { h.log = l }
}

// Open loads host state from store.
func Open(ctx context.Context, store *SQLiteStore, opts ...Option) (*Host, error) {
	h := &Host{
		store:    store,
		log:      zap.NewNop(),
		bus:      NewBus(),
		personas: make(map[string]*Persona),
		live:     model.DefaultLiveConfig(),
		settings: DefaultExtensionSettings(),
	}
	for _, o := range opts {
		o(h)
	}
	h.log = h.log.Named("host")

	personas, err := store.LoadPersonas(ctx)
	if err != nil {
		return nil, fmt.Errorf("load personas: %w", err)
	}
	for i := range personas {
		p := personas[i]
		h.personas[p.AvatarID] = &p
	}
	st, err := store.LoadState(ctx)
	if err != nil {
		return nil, err
	}
	h.current = st.CurrentAvatar
	h.live = st.Live
	if h.settings, err = store.LoadSettings(ctx); err != nil {
		return nil, err
	}
	if _, ok := h.personas[h.current]; !ok {
		h.current = ""
	}
	h.log.Debug("host loaded", zap.Int("personas", len(h.personas)), zap.String("current", h.current))
	return h, nil
}

// SetLiveGuard installs the filter applied to the live config on save.
func (h *Host) SetLiveGuard(g LiveGuard) { h.guard = g }

// Bus returns the generation lifecycle bus.
func (h *Host) Bus() *Bus { return h.bus }

// Locker returns the host lock. The patch controller takes it before
// restoring the live config from its own goroutine.
func (h *Host) Locker() sync.Locker { return &h.mu }

// Update runs fn under the host lock.
func (h *Host) Update(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn()
}

// CurrentAvatar returns the selected avatar id, or "".
func (h *Host) CurrentAvatar() string { return h.current }

// Current returns the selected persona's descriptor, creating it from the
// live fields if the persona has none. It returns nil if no persona is
// selected.
func (h *Host) Current() *model.PersonaDescriptor {
	p, ok := h.personas[h.current]
	if !ok {
		return nil
	}
	if p.Descriptor == nil {
		p.Descriptor = &model.PersonaDescriptor{
			Description: h.live.Description,
			Position:    h.live.Position,
			Depth:       h.live.Depth,
			Role:        h.live.Role,
		}
	}
	return p.Descriptor
}

// Live returns the live persona fields.
func (h *Host) Live() *model.LiveConfig { return &h.live }

// Enabled reports whether the extension is enabled.
func (h *Host) Enabled() bool { return h.settings.Enabled }

// SetEnabled switches the extension on or off.
func (h *Host) SetEnabled(enabled bool) { h.settings.Enabled = enabled }

// CreatePersona adds a persona. The name defaults to the avatar id.
func (h *Host) CreatePersona(avatarID, name string) (*Persona, error) {
	avatarID = strings.TrimSpace(avatarID)
	if avatarID == "" {
		return nil, fmt.Errorf("avatar id is required")
	}
	if _, ok := h.personas[avatarID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPersonaExists, avatarID)
	}
	if name = strings.TrimSpace(name); name == "" {
		name = avatarID
	}
	p := &Persona{
		AvatarID: avatarID,
		Name:     name,
		Descriptor: &model.PersonaDescriptor{
			Position: model.PositionInPrompt,
			Depth:    model.DefaultDepth,
			Role:     model.RoleSystem,
		},
	}
	h.personas[avatarID] = p
	return p, nil
}

// SelectPersona makes avatarID current and loads its native fields into
// the live config.
func (h *Host) SelectPersona(avatarID string) error {
	p, ok := h.personas[avatarID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPersonaNotFound, avatarID)
	}
	h.current = avatarID
	if d := p.Descriptor; d != nil {
		h.live = model.LiveConfig{
			Description: d.Description,
			Position:    d.Position,
			Depth:       d.Depth,
			Role:        d.Role,
		}
	}
	return nil
}

// RemovePersona deletes a persona. Removing the current persona clears the
// selection.
func (h *Host) RemovePersona(avatarID string) error {
	if _, ok := h.personas[avatarID]; !ok {
		return fmt.Errorf("%w: %s", ErrPersonaNotFound, avatarID)
	}
	delete(h.personas, avatarID)
	if h.current == avatarID {
		h.current = ""
	}
	return nil
}

// Persona returns a stored persona.
func (h *Host) Persona(avatarID string) (*Persona, error) {
	p, ok := h.personas[avatarID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPersonaNotFound, avatarID)
	}
	return p, nil
}

// PersonaSummary is a list entry.
type PersonaSummary struct {
	AvatarID string `json:"avatar_id"`
	Name     string `json:"name"`
	Current  bool   `json:"current"`
	Linked   bool   `json:"linked"`
	Blocks   int    `json:"blocks"`
	Preview  string `json:"preview,omitempty"`
	Length   int    `json:"length"`
}

const previewLen = 120

// Personas lists personas by name.
func (h *Host) Personas() []PersonaSummary {
	out := make([]PersonaSummary, 0, len(h.personas))
	for _, p := range h.personas {
		desc := strings.TrimSpace(p.Descriptor.EffectiveDescription())
		sum := PersonaSummary{
			AvatarID: p.AvatarID,
			Name:     p.Name,
			Current:  p.AvatarID == h.current,
			Linked:   p.Descriptor.Linked(),
			Length:   len([]rune(desc)),
			Preview:  preview(desc),
		}
		if p.Descriptor != nil && p.Descriptor.Pme != nil {
			sum.Blocks = len(p.Descriptor.Pme.Blocks)
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].AvatarID < out[j].AvatarID
	})
	return out
}

func preview(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen]) + "…"
}

// Save persists all host state. Patched live values are never written:
// the live guard supplies the durable view.
func (h *Host) Save(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.saveLocked(ctx)
}

func (h *Host) saveLocked(ctx context.Context) error {
	var live model.LiveConfig
	if h.guard != nil {
		live = h.guard.Durable(&h.live)
	} else {
		live = h.live
	}
	snap := Snapshot{
		State:    State{CurrentAvatar: h.current, Live: live},
		Settings: h.settings,
	}
	for _, p := range h.personas {
		snap.Personas = append(snap.Personas, *p)
	}
	if err := h.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save host state: %w", err)
	}
	h.log.Debug("host state saved", zap.Int("personas", len(snap.Personas)))
	return nil
}
