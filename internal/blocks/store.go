// Package blocks provides the per-persona block store: ordered items and
// groups of additional description text plus the persona's composition
// settings.
package blocks

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/rcliao/persona-extended/internal/model"
)

// Personas gives access to the host's current persona and live config.
type Personas interface {
	// Current returns the current persona's descriptor, creating it if
	// needed. It returns nil when no persona is selected.
	Current() *model.PersonaDescriptor

	// Live returns the host's live configuration, or nil if unavailable.
	Live() *model.LiveConfig
}

// Saver schedules a debounced persist of host state.
type Saver interface {
	Schedule()
}

// SaverFunc adapts a function to Saver.
type SaverFunc func()

func (f SaverFunc) Schedule() { f() }

// Store operates on the blocks of whatever persona is current.
// Lookups that find nothing are silent no-ops.
type Store struct {
	personas Personas
	saver    Saver
	newID    func() string
	log      *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides ULID generation. Used by tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithLogger sets the store's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New creates a Store over the given host accessors.
func New(personas Personas, saver Saver, opts ...Option) *Store {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	s := &Store{
		personas: personas,
		saver:    saver,
		newID: func() string {
			return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String())
		},
		log: zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.Named("blocks")
	return s
}

// ext returns the current persona's extension record, creating and
// normalizing it. Without a current persona it returns a detached record
// so that callers degrade to no-ops.
func (s *Store) ext() (*model.PersonaDescriptor, *model.Extension) {
	d := s.personas.Current()
	if d == nil {
		s.log.Debug("no current persona")
		ext := model.NewExtension()
		return &model.PersonaDescriptor{Pme: ext}, ext
	}
	if d.Pme == nil {
		d.Pme = model.NewExtension()
	}
	d.Pme.Normalize(s.newID)
	return d, d.Pme
}

func (s *Store) save() {
	if s.saver != nil {
		s.saver.Schedule()
	}
}

// NewID returns a new block id.
func (s *Store) NewID() string { return s.newID() }

// freshID returns an id not present anywhere in blocks.
func (s *Store) freshID(blocks model.Blocks) string {
	ids := blocks.IDs()
	for {
		if id := s.newID(); id != "" && !ids[id] {
			return id
		}
	}
}

// Data returns the current persona's record, initializing and repairing it.
func (s *Store) Data() *model.PmeData {
	_, ext := s.ext()
	return &ext.PmeData
}

// List returns the ordered top-level blocks.
func (s *Store) List() model.Blocks {
	return s.Data().Blocks
}

// AddItem appends a new top-level item titled after the count of
// existing top-level items.
func (s *Store) AddItem() *model.Item {
	data := s.Data()
	items, _ := data.Blocks.Count()
	it := &model.Item{
		ID:       s.freshID(data.Blocks),
		Title:    fmt.Sprintf("Item %d", items+1),
		Enabled:  true,
		Advanced: model.DefaultAdvanced(),
	}
	data.Blocks = append(data.Blocks, it)
	s.save()
	return it
}

// AddGroup appends a new empty group. A blank title defaults to
// "Group N" after the count of existing groups.
func (s *Store) AddGroup(title string) *model.Group {
	data := s.Data()
	title = strings.TrimSpace(title)
	if title == "" {
		_, groups := data.Blocks.Count()
		title = fmt.Sprintf("Group %d", groups+1)
	}
	g := &model.Group{
		ID:       s.freshID(data.Blocks),
		Title:    title,
		Enabled:  true,
		Items:    []*model.Item{},
		Advanced: model.DefaultAdvanced(),
	}
	data.Blocks = append(data.Blocks, g)
	s.save()
	return g
}

// AddItemToGroup appends a new item to the group. It returns nil if the
// group does not exist.
func (s *Store) AddItemToGroup(groupID string) *model.Item {
	data := s.Data()
	g := data.Blocks.Group(groupID)
	if g == nil {
		return nil
	}
	it := &model.Item{
		ID:       s.freshID(data.Blocks),
		Title:    fmt.Sprintf("Item %d", len(g.Items)+1),
		Enabled:  true,
		Advanced: model.DefaultAdvanced(),
	}
	g.Items = append(g.Items, it)
	s.save()
	return it
}

// ItemPatch is a partial item update; nil fields are left unchanged.
type ItemPatch struct {
	Title     *string
	Text      *string
	Enabled   *bool
	Collapsed *bool
	Advanced  *model.Advanced
}

// GroupPatch is a partial group update; nil fields are left unchanged.
type GroupPatch struct {
	Title     *string
	Enabled   *bool
	Collapsed *bool
	Advanced  *model.Advanced
}

// PatchItem merges p into the item with the given id, at top level or in
// any group. A save is scheduled even when no item matches.
func (s *Store) PatchItem(id string, p ItemPatch) {
	if it := s.Data().Blocks.FindItem(id); it != nil {
		if p.Title != nil {
			it.Title = *p.Title
		}
		if p.Text != nil {
			it.Text = *p.Text
		}
		if p.Enabled != nil {
			it.Enabled = *p.Enabled
		}
		if p.Collapsed != nil {
			it.Collapsed = *p.Collapsed
		}
		if p.Advanced != nil {
			it.Advanced = p.Advanced.Clone()
		}
	} else {
		s.log.Debug("patch item: not found", zap.String("id", id))
	}
	s.save()
}

// PatchGroup merges p into the group with the given id. A save is
// scheduled even when no group matches.
func (s *Store) PatchGroup(id string, p GroupPatch) {
	if g := s.Data().Blocks.Group(id); g != nil {
		if p.Title != nil {
			g.Title = *p.Title
		}
		if p.Enabled != nil {
			g.Enabled = *p.Enabled
		}
		if p.Collapsed != nil {
			g.Collapsed = *p.Collapsed
		}
		if p.Advanced != nil {
			g.Advanced = p.Advanced.Clone()
		}
	} else {
		s.log.Debug("patch group: not found", zap.String("id", id))
	}
	s.save()
}

// RemoveItem removes the item from the top level and from every group.
func (s *Store) RemoveItem(id string) {
	data := s.Data()
	kept := make(model.Blocks, 0, len(data.Blocks))
	for _, b := range data.Blocks {
		switch v := b.(type) {
		case *model.Item:
			if v.ID == id {
				continue
			}
		case *model.Group:
			items := make([]*model.Item, 0, len(v.Items))
			for _, it := range v.Items {
				if it.ID != id {
					items = append(items, it)
				}
			}
			v.Items = items
		}
		kept = append(kept, b)
	}
	data.Blocks = kept
	s.save()
}

// RemoveGroup removes the group and all of its items.
func (s *Store) RemoveGroup(id string) {
	data := s.Data()
	kept := make(model.Blocks, 0, len(data.Blocks))
	for _, b := range data.Blocks {
		if g, ok := b.(*model.Group); ok && g.ID == id {
			continue
		}
		kept = append(kept, b)
	}
	data.Blocks = kept
	s.save()
}

// MoveBlock swaps a top-level block with its neighbor in the direction of
// delta. Out-of-range moves and a zero delta do nothing.
func (s *Store) MoveBlock(id string, delta int) {
	data := s.Data()
	if swapAdjacent(len(data.Blocks), data.Blocks.Index(id), delta, func(i, j int) {
		data.Blocks[i], data.Blocks[j] = data.Blocks[j], data.Blocks[i]
	}) {
		s.save()
	}
}

// MoveItemInGroup swaps an item with its neighbor inside one group.
func (s *Store) MoveItemInGroup(groupID, itemID string, delta int) {
	g := s.Data().Blocks.Group(groupID)
	if g == nil {
		return
	}
	idx := -1
	for i, it := range g.Items {
		if it.ID == itemID {
			idx = i
			break
		}
	}
	if swapAdjacent(len(g.Items), idx, delta, func(i, j int) {
		g.Items[i], g.Items[j] = g.Items[j], g.Items[i]
	}) {
		s.save()
	}
}

func swapAdjacent(n, idx, delta int, swap func(i, j int)) bool {
	if idx < 0 || delta == 0 {
		return false
	}
	next := idx + 1
	if delta < 0 {
		next = idx - 1
	}
	if next < 0 || next >= n {
		return false
	}
	swap(idx, next)
	return true
}

// Settings returns the current persona's composition settings.
func (s *Store) Settings() model.Settings {
	return s.Data().Settings
}

// SettingsPatch is a partial settings update.
type SettingsPatch struct {
	WrapperEnabled   *bool
	WrapperTemplate  *string
	AdditionalJoiner *string
}

// PatchSettings merges p into the current persona's settings.
func (s *Store) PatchSettings(p SettingsPatch) {
	data := s.Data()
	if p.WrapperEnabled != nil {
		data.Settings.WrapperEnabled = *p.WrapperEnabled
	}
	if p.WrapperTemplate != nil {
		data.Settings.WrapperTemplate = *p.WrapperTemplate
	}
	if p.AdditionalJoiner != nil {
		data.Settings.AdditionalJoiner = *p.AdditionalJoiner
	}
	s.save()
}
