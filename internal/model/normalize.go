package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// DecodeExtension decodes a host-stored "pme" object, repairing rather than
// rejecting malformed fields. Only invalid JSON is an error. Missing or
// non-object input yields a fresh record.
func DecodeExtension(raw []byte) (*Extension, error) {
	ext := NewExtension()
	if len(raw) == 0 {
		return ext, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode pme: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return ext, nil
	}

	if list, ok := m["blocks"].([]any); ok {
		for _, entry := range list {
			bm, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			switch bm["type"] {
			case KindItem:
				ext.Blocks = append(ext.Blocks, decodeItem(bm))
			case KindGroup:
				ext.Blocks = append(ext.Blocks, decodeGroup(bm))
			}
		}
	}

	if sm, ok := m["settings"].(map[string]any); ok {
		if b, ok := sm["wrapperEnabled"].(bool); ok {
			ext.Settings.WrapperEnabled = b
		}
		if s, ok := sm["wrapperTemplate"].(string); ok {
			ext.Settings.WrapperTemplate = s
		}
		if s, ok := sm["additionalJoiner"].(string); ok {
			ext.Settings.AdditionalJoiner = s
		}
	}

	if b, ok := m["linkedToNative"].(bool); ok {
		ext.LinkedToNative = b
	}
	if lm, ok := m["local"].(map[string]any); ok {
		ext.Local.Description = cast.ToString(lm["description"])
		ext.Local.Position = Position(intOr(lm["position"], int(PositionInPrompt)))
		ext.Local.Depth = intOr(lm["depth"], DefaultDepth)
		ext.Local.Role = Role(intOr(lm["role"], int(RoleSystem)))
	}
	return ext, nil
}

func decodeItem(m map[string]any) *Item {
	return &Item{
		ID:        strings.TrimSpace(cast.ToString(m["id"])),
		Title:     strings.TrimSpace(cast.ToString(m["title"])),
		Text:      cast.ToString(m["text"]),
		Enabled:   boolOr(m["enabled"], true),
		Collapsed: boolOr(m["collapsed"], false),
		Advanced:  decodeAdvanced(m["adv"]),
	}
}

func decodeGroup(m map[string]any) *Group {
	g := &Group{
		ID:        strings.TrimSpace(cast.ToString(m["id"])),
		Title:     strings.TrimSpace(cast.ToString(m["title"])),
		Enabled:   boolOr(m["enabled"], true),
		Collapsed: boolOr(m["collapsed"], false),
		Items:     []*Item{},
		Advanced:  decodeAdvanced(m["adv"]),
	}
	if list, ok := m["items"].([]any); ok {
		for _, entry := range list {
			if im, ok := entry.(map[string]any); ok {
				g.Items = append(g.Items, decodeItem(im))
			}
		}
	}
	return g
}

func decodeAdvanced(v any) *Advanced {
	adv := DefaultAdvanced()
	m, ok := v.(map[string]any)
	if !ok {
		return adv
	}
	if b, ok := m["advancedOpen"].(bool); ok {
		adv.AdvancedOpen = b
	}
	if cm, ok := m["connections"].(map[string]any); ok {
		if b, ok := cm["enabled"].(bool); ok {
			adv.Connections.Enabled = b
		}
		adv.Connections.Chats = idList(cm["chats"])
		adv.Connections.Characters = idList(cm["characters"])
	}
	if mm, ok := m["match"].(map[string]any); ok {
		if b, ok := mm["enabled"].(bool); ok {
			adv.Match.Enabled = b
		}
		if s, ok := mm["query"].(string); ok {
			adv.Match.Query = s
		}
	}
	return adv
}

// idList coerces a JSON array into trimmed, non-empty strings.
func idList(v any) []string {
	out := []string{}
	list, ok := v.([]any)
	if !ok {
		return out
	}
	for _, x := range list {
		if s := strings.TrimSpace(cast.ToString(x)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func boolOr(v any, def bool) bool {
	if v == nil {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

func intOr(v any, def int) int {
	if v == nil {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return n
}

// Normalize repairs an in-memory record: blank or duplicated ids are
// regenerated with newID, blank titles get defaults, nil slices and
// missing advanced metadata are filled in. It is idempotent.
func (e *Extension) Normalize(newID func() string) {
	e.Version = SchemaVersion
	if e.Blocks == nil {
		e.Blocks = Blocks{}
	}
	seen := make(map[string]bool)
	uniqueID := func(id string) string {
		id = strings.TrimSpace(id)
		for id == "" || seen[id] {
			id = newID()
		}
		seen[id] = true
		return id
	}

	kept := e.Blocks[:0]
	for _, b := range e.Blocks {
		switch v := b.(type) {
		case *Item:
			if v == nil {
				continue
			}
			normalizeItem(v, uniqueID)
		case *Group:
			if v == nil {
				continue
			}
			v.ID = uniqueID(v.ID)
			if v.Title = strings.TrimSpace(v.Title); v.Title == "" {
				v.Title = "Group"
			}
			v.Advanced = normalizeAdvanced(v.Advanced)
			items := make([]*Item, 0, len(v.Items))
			for _, it := range v.Items {
				if it == nil {
					continue
				}
				normalizeItem(it, uniqueID)
				items = append(items, it)
			}
			v.Items = items
		default:
			continue
		}
		kept = append(kept, b)
	}
	e.Blocks = kept
}

func normalizeItem(it *Item, uniqueID func(string) string) {
	it.ID = uniqueID(it.ID)
	if it.Title = strings.TrimSpace(it.Title); it.Title == "" {
		it.Title = "Item"
	}
	it.Advanced = normalizeAdvanced(it.Advanced)
}

func normalizeAdvanced(a *Advanced) *Advanced {
	if a == nil {
		return DefaultAdvanced()
	}
	a.Connections.Chats = trimIDs(a.Connections.Chats)
	a.Connections.Characters = trimIDs(a.Connections.Characters)
	return a
}

func trimIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// DecodeDescriptor decodes a host persona record, repairing its fields the
// same way DecodeExtension does. A record without "pme" keeps Pme nil.
func DecodeDescriptor(raw []byte) (*PersonaDescriptor, error) {
	d := &PersonaDescriptor{Position: PositionInPrompt, Depth: DefaultDepth, Role: RoleSystem}
	if len(raw) == 0 {
		return d, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode persona: %w", err)
	}
	field := func(key string) any {
		var v any
		if r, ok := m[key]; ok {
			_ = json.Unmarshal(r, &v)
		}
		return v
	}
	d.Description = cast.ToString(field("description"))
	d.Title = cast.ToString(field("title"))
	d.Lorebook = cast.ToString(field("lorebook"))
	d.Position = Position(intOr(field("position"), int(PositionInPrompt)))
	d.Depth = intOr(field("depth"), DefaultDepth)
	d.Role = Role(intOr(field("role"), int(RoleSystem)))
	if r, ok := m["pme"]; ok && string(r) != "null" {
		ext, err := DecodeExtension(r)
		if err != nil {
			return nil, err
		}
		d.Pme = ext
	}
	return d, nil
}
