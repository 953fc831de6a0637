// Package model defines the persona block data types.
package model

import (
	"encoding/json"
	"fmt"
)

// Block kinds as they appear in the persisted "type" field.
const (
	KindItem  = "item"
	KindGroup = "group"
)

// Block is either an *Item or a *Group.
type Block interface {
	BlockID() string
	Kind() string
	isBlock()
}

// Item is a unit of additional description text.
type Item struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Enabled   bool      `json:"enabled"`
	Collapsed bool      `json:"collapsed"`
	Advanced  *Advanced `json:"adv,omitempty"`
}

// Group is a named, orderable container of items. A disabled group
// suppresses all of its items.
type Group struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Enabled   bool      `json:"enabled"`
	Collapsed bool      `json:"collapsed"`
	Items     []*Item   `json:"items"`
	Advanced  *Advanced `json:"adv,omitempty"`
}

func (it *Item) BlockID() string { return it.ID }
func (it *Item) Kind() string    { return KindItem }
func (*Item) isBlock()           {}

func (g *Group) BlockID() string { return g.ID }
func (g *Group) Kind() string    { return KindGroup }
func (*Group) isBlock()          {}

// Active reports whether the item contributes text. AUTO-mode rules are
// stored but not evaluated, so this is the manual flag.
func (it *Item) Active() bool { return it.Enabled }

// Active reports whether the group's subtree contributes text.
func (g *Group) Active() bool { return g.Enabled }

// Auto reports whether the item is driven by connection or match rules.
func (it *Item) Auto() bool { return it.Advanced.Auto() }

// Auto reports whether the group is driven by connection or match rules.
func (g *Group) Auto() bool { return g.Advanced.Auto() }

// Find returns the item with the given id, or nil.
func (g *Group) Find(id string) *Item {
	for _, it := range g.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// Advanced holds activation metadata shared by items and groups.
type Advanced struct {
	AdvancedOpen bool        `json:"advancedOpen"`
	Connections  Connections `json:"connections"`
	Match        Match       `json:"match"`
}

// Connections force-activate a block for the listed chats or characters.
type Connections struct {
	Enabled    bool     `json:"enabled"`
	Chats      []string `json:"chats"`
	Characters []string `json:"characters"`
}

// Match force-activates a block when its query matches the current context.
type Match struct {
	Enabled bool   `json:"enabled"`
	Query   string `json:"query"`
}

// DefaultAdvanced returns advanced metadata with everything switched off.
func DefaultAdvanced() *Advanced {
	return &Advanced{
		Connections: Connections{Chats: []string{}, Characters: []string{}},
	}
}

// Auto reports AUTO mode. A nil receiver is manual.
func (a *Advanced) Auto() bool {
	if a == nil {
		return false
	}
	return a.Connections.Enabled || a.Match.Enabled
}

// Clone returns a deep copy.
func (a *Advanced) Clone() *Advanced {
	if a == nil {
		return nil
	}
	c := *a
	c.Connections.Chats = append([]string{}, a.Connections.Chats...)
	c.Connections.Characters = append([]string{}, a.Connections.Characters...)
	return &c
}

// Blocks is the ordered top-level block list of a persona. Order is
// significant and only changed by explicit moves.
type Blocks []Block

type typedItem struct {
	Type string `json:"type"`
	*Item
}

type typedGroup struct {
	Type string `json:"type"`
	*Group
}

// MarshalJSON writes each block with its "type" discriminator.
func (bs Blocks) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(bs))
	for _, b := range bs {
		switch v := b.(type) {
		case *Item:
			out = append(out, typedItem{Type: KindItem, Item: v})
		case *Group:
			items := v.Items
			if items == nil {
				items = []*Item{}
			}
			g := *v
			g.Items = items
			out = append(out, typedGroup{Type: KindGroup, Group: &g})
		default:
			return nil, fmt.Errorf("unknown block %T", b)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a block list strictly by type. Blocks with an
// unknown type are dropped. Use DecodeExtension for lenient decoding of
// host data.
func (bs *Blocks) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Blocks, 0, len(raw))
	for _, r := range raw {
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(r, &head); err != nil {
			return err
		}
		switch head.Type {
		case KindItem:
			it := &Item{Enabled: true}
			if err := json.Unmarshal(r, it); err != nil {
				return fmt.Errorf("decode item: %w", err)
			}
			out = append(out, it)
		case KindGroup:
			g := &Group{Enabled: true}
			if err := json.Unmarshal(r, g); err != nil {
				return fmt.Errorf("decode group: %w", err)
			}
			out = append(out, g)
		}
	}
	*bs = out
	return nil
}

// Index returns the position of the top-level block with the given id, or -1.
func (bs Blocks) Index(id string) int {
	for i, b := range bs {
		if b.BlockID() == id {
			return i
		}
	}
	return -1
}

// Group returns the top-level group with the given id, or nil.
func (bs Blocks) Group(id string) *Group {
	for _, b := range bs {
		if g, ok := b.(*Group); ok && g.ID == id {
			return g
		}
	}
	return nil
}

// FindItem returns the item with the given id, searching the top level
// first and then every group in order.
func (bs Blocks) FindItem(id string) *Item {
	for _, b := range bs {
		switch v := b.(type) {
		case *Item:
			if v.ID == id {
				return v
			}
		case *Group:
			if it := v.Find(id); it != nil {
				return it
			}
		}
	}
	return nil
}

// Count returns the number of top-level items and groups.
func (bs Blocks) Count() (items, groups int) {
	for _, b := range bs {
		switch b.(type) {
		case *Item:
			items++
		case *Group:
			groups++
		}
	}
	return items, groups
}

// IDs returns every id in the tree, groups and their items included.
func (bs Blocks) IDs() map[string]bool {
	ids := make(map[string]bool)
	for _, b := range bs {
		ids[b.BlockID()] = true
		if g, ok := b.(*Group); ok {
			for _, it := range g.Items {
				ids[it.ID] = true
			}
		}
	}
	return ids
}
