// Package compose derives the persona text injected into a generation from
// the persona's base description, its enabled blocks and its settings.
// Everything here is pure: no I/O and no mutation of its inputs.
package compose

import (
	"strings"

	"github.com/rcliao/persona-extended/internal/model"
)

// Placeholder is replaced by the composed text inside a wrapper template.
const Placeholder = "{{PROMPT}}"

// Result is the composed persona prompt.
type Result struct {
	Linked        bool           `json:"linked"`
	Base          string         `json:"base"`
	Additions     []string       `json:"additions"`
	FinalText     string         `json:"final_text"`
	FinalPosition model.Position `json:"final_position"`
	FinalDepth    int            `json:"final_depth"`
	FinalRole     model.Role     `json:"final_role"`
	HasAnyEffect  bool           `json:"has_any_effect"`
}

// LiveConfig returns the result as the values to write into the host.
func (r Result) LiveConfig() model.LiveConfig {
	return model.LiveConfig{
		Description: r.FinalText,
		Position:    r.FinalPosition,
		Depth:       r.FinalDepth,
		Role:        r.FinalRole,
	}
}

// Compose builds the persona prompt for desc. When the persona is linked
// the base text and position/depth/role come from live; otherwise from the
// persona's local copy. A nil desc or live is treated as empty with host
// defaults.
func Compose(desc *model.PersonaDescriptor, live *model.LiveConfig) Result {
	settings := model.DefaultSettings()
	var blocks model.Blocks
	if desc != nil && desc.Pme != nil {
		settings = desc.Pme.Settings
		blocks = desc.Pme.Blocks
	}

	res := Result{Linked: desc.Linked()}
	if res.Linked {
		lc := model.DefaultLiveConfig()
		if live != nil {
			lc = *live
		}
		res.Base = lc.Description
		res.FinalPosition, res.FinalDepth, res.FinalRole = lc.Position, lc.Depth, lc.Role
	} else {
		l := desc.Pme.Local
		res.Base = l.Description
		res.FinalPosition, res.FinalDepth, res.FinalRole = l.Position, l.Depth, l.Role
	}

	res.Additions = Collect(blocks)
	joiner := ParseEscapes(settings.AdditionalJoiner)
	combined := Combine(res.Base, res.Additions, joiner)

	if settings.WrapperEnabled && strings.TrimSpace(combined) != "" {
		combined = Wrap(settings.WrapperTemplate, combined)
	}
	res.FinalText = combined
	res.HasAnyEffect = strings.TrimSpace(combined) != ""
	return res
}

// Collect returns the raw text of every active, non-blank item in block
// order. A disabled group suppresses all of its items. Titles are never
// collected.
func Collect(blocks model.Blocks) []string {
	out := []string{}
	add := func(it *model.Item) {
		if it != nil && it.Active() && strings.TrimSpace(it.Text) != "" {
			out = append(out, it.Text)
		}
	}
	for _, b := range blocks {
		switch v := b.(type) {
		case *model.Item:
			add(v)
		case *model.Group:
			if !v.Active() {
				continue
			}
			for _, it := range v.Items {
				add(it)
			}
		}
	}
	return out
}

// Combine joins base and additions with joiner. A blank base is dropped.
func Combine(base string, additions []string, joiner string) string {
	extra := strings.Join(additions, joiner)
	if strings.TrimSpace(base) == "" {
		return extra
	}
	if extra == "" {
		return base
	}
	return base + joiner + extra
}

// Wrap substitutes text for every placeholder in template. A template
// without a placeholder is used as a prefix.
func Wrap(template, text string) string {
	if strings.Contains(template, Placeholder) {
		return strings.ReplaceAll(template, Placeholder, text)
	}
	return template + text
}

// ParseEscapes unescapes \n, \r, \t and \\. Any other escaped character is
// kept without its backslash; a trailing lone backslash is kept.
func ParseEscapes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		if rs[i] != '\\' || i == len(rs)-1 {
			b.WriteRune(rs[i])
			continue
		}
		i++
		switch rs[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteRune(rs[i])
		}
	}
	return b.String()
}
