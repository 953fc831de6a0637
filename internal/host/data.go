package host

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rcliao/persona-extended/internal/model"
)

// Stats holds persona and block counts.
type Stats struct {
	DBPath        string `json:"db_path"`
	DBSizeBytes   int64  `json:"db_size_bytes"`
	Personas      int    `json:"personas"`
	WithBlocks    int    `json:"personas_with_blocks"`
	Unlinked      int    `json:"unlinked"`
	TopLevelItems int    `json:"top_level_items"`
	Groups        int    `json:"groups"`
	GroupedItems  int    `json:"grouped_items"`
	EnabledItems  int    `json:"enabled_items"`
	AutoBlocks    int    `json:"auto_blocks"`
	Enabled       bool   `json:"extension_enabled"`
}

// Stats returns counts over every persona.
func (h *Host) Stats() *Stats {
	st := &Stats{DBPath: h.store.Path(), Personas: len(h.personas), Enabled: h.settings.Enabled}
	if info, err := os.Stat(h.store.Path()); err == nil {
		st.DBSizeBytes = info.Size()
	}
	for _, p := range h.personas {
		if !p.Descriptor.Linked() {
			st.Unlinked++
		}
		if p.Descriptor == nil || p.Descriptor.Pme == nil {
			continue
		}
		blocks := p.Descriptor.Pme.Blocks
		if len(blocks) > 0 {
			st.WithBlocks++
		}
		for _, b := range blocks {
			switch v := b.(type) {
			case *model.Item:
				st.TopLevelItems++
				if v.Enabled {
					st.EnabledItems++
				}
				if v.Auto() {
					st.AutoBlocks++
				}
			case *model.Group:
				st.Groups++
				if v.Auto() {
					st.AutoBlocks++
				}
				for _, it := range v.Items {
					st.GroupedItems++
					if it.Enabled && v.Enabled {
						st.EnabledItems++
					}
					if it.Auto() {
						st.AutoBlocks++
					}
				}
			}
		}
	}
	return st
}

// Export returns the persona's extension record as JSON.
func (h *Host) Export(avatarID string) ([]byte, error) {
	p, err := h.Persona(avatarID)
	if err != nil {
		return nil, err
	}
	ext := model.NewExtension()
	if p.Descriptor != nil && p.Descriptor.Pme != nil {
		ext = p.Descriptor.Pme
	}
	return json.MarshalIndent(ext, "", "  ")
}

// Import replaces the persona's extension record with raw, repairing it on
// the way in.
func (h *Host) Import(avatarID string, raw []byte) (*model.Extension, error) {
	p, err := h.Persona(avatarID)
	if err != nil {
		return nil, err
	}
	ext, err := model.DecodeExtension(raw)
	if err != nil {
		return nil, err
	}
	if p.Descriptor == nil {
		p.Descriptor, _ = model.DecodeDescriptor(nil)
	}
	p.Descriptor.Pme = ext
	return ext, nil
}

// ClearAll removes the extension record from every persona and resets the
// extension settings. It returns how many personas had data.
func (h *Host) ClearAll() int {
	n := 0
	for _, p := range h.personas {
		if p.Descriptor != nil && p.Descriptor.Pme != nil {
			p.Descriptor.Pme = nil
			n++
		}
	}
	h.settings = DefaultExtensionSettings()
	return n
}

// LegacyEntry is one additional description in the older flat format.
type LegacyEntry struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Enabled     *bool  `json:"enabled" yaml:"enabled"`
}

// LegacyResult reports a legacy import.
type LegacyResult struct {
	Personas int `json:"personas"`
	Items    int `json:"items"`
}

// ImportLegacy appends legacy entries to each persona's blocks as flat
// items, keeping their order. Every entry is imported; a blank title
// becomes "Item N" after the entry's position. Unknown personas are
// created. newID fills missing ids.
func (h *Host) ImportLegacy(entries map[string][]LegacyEntry, newID func() string) (LegacyResult, error) {
	var res LegacyResult
	for avatarID, list := range entries {
		avatarID = strings.TrimSpace(avatarID)
		if avatarID == "" || len(list) == 0 {
			continue
		}
		var items model.Blocks
		for idx, e := range list {
			title := strings.TrimSpace(e.Title)
			if title == "" {
				title = fmt.Sprintf("Item %d", idx+1)
			}
			id := strings.TrimSpace(e.ID)
			if id == "" {
				id = newID()
			}
			items = append(items, &model.Item{
				ID:       id,
				Title:    title,
				Text:     e.Description,
				Enabled:  e.Enabled == nil || *e.Enabled,
				Advanced: model.DefaultAdvanced(),
			})
		}
		if len(items) == 0 {
			continue
		}

		p, ok := h.personas[avatarID]
		if !ok {
			var err error
			if p, err = h.CreatePersona(avatarID, ""); err != nil {
				return res, err
			}
		}
		if p.Descriptor == nil {
			p.Descriptor, _ = model.DecodeDescriptor(nil)
		}
		if p.Descriptor.Pme == nil {
			p.Descriptor.Pme = model.NewExtension()
		}
		p.Descriptor.Pme.Blocks = append(p.Descriptor.Pme.Blocks, items...)
		p.Descriptor.Pme.Normalize(newID)

		res.Personas++
		res.Items += len(items)
	}
	return res, nil
}

// SearchHit is a block whose title or text matched a search.
type SearchHit struct {
	AvatarID string `json:"avatar_id"`
	BlockID  string `json:"block_id"`
	GroupID  string `json:"group_id,omitempty"`
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	Enabled  bool   `json:"enabled"`
}

// Search returns blocks across all personas whose title or text matches
// rule, ordered by persona then block order. limit <= 0 means no limit.
func (h *Host) Search(rule *model.MatchRule, limit int) []SearchHit {
	var hits []SearchHit
	for _, sum := range h.Personas() {
		d := h.personas[sum.AvatarID].Descriptor
		if d == nil || d.Pme == nil {
			continue
		}
		for _, b := range d.Pme.Blocks {
			switch v := b.(type) {
			case *model.Item:
				if rule.Match(v.Title) || rule.Match(v.Text) {
					hits = append(hits, SearchHit{AvatarID: sum.AvatarID, BlockID: v.ID, Kind: model.KindItem, Title: v.Title, Enabled: v.Enabled})
				}
			case *model.Group:
				if rule.Match(v.Title) {
					hits = append(hits, SearchHit{AvatarID: sum.AvatarID, BlockID: v.ID, Kind: model.KindGroup, Title: v.Title, Enabled: v.Enabled})
				}
				for _, it := range v.Items {
					if rule.Match(it.Title) || rule.Match(it.Text) {
						hits = append(hits, SearchHit{AvatarID: sum.AvatarID, BlockID: it.ID, GroupID: v.ID, Kind: model.KindItem, Title: it.Title, Enabled: it.Enabled && v.Enabled})
					}
				}
			}
			if limit > 0 && len(hits) >= limit {
				return hits[:limit]
			}
		}
	}
	return hits
}
