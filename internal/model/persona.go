package model

import "fmt"

// SchemaVersion is the current PmeData version.
const SchemaVersion = 1

// Position selects where the host injects the persona description.
// Values match the host's persona_description_positions.
type Position int

const (
	PositionInPrompt Position = 0
	PositionTopAN    Position = 2
	PositionBottomAN Position = 3
	PositionAtDepth  Position = 4
	PositionNone     Position = 9
)

var positionNames = map[Position]string{
	PositionInPrompt: "in_prompt",
	PositionTopAN:    "top_an",
	PositionBottomAN: "bottom_an",
	PositionAtDepth:  "at_depth",
	PositionNone:     "none",
}

func (p Position) String() string {
	if s, ok := positionNames[p]; ok {
		return s
	}
	return fmt.Sprintf("position(%d)", int(p))
}

// Valid reports whether p is a known position.
func (p Position) Valid() bool {
	_, ok := positionNames[p]
	return ok
}

// ParsePosition accepts a position name or its numeric value.
func ParsePosition(s string) (Position, error) {
	for p, name := range positionNames {
		if s == name || s == fmt.Sprint(int(p)) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("invalid position %q (valid: in_prompt, top_an, bottom_an, at_depth, none)", s)
}

// Role is the chat role used for at-depth injection.
type Role int

const (
	RoleSystem    Role = 0
	RoleUser      Role = 1
	RoleAssistant Role = 2
)

var roleNames = map[Role]string{
	RoleSystem:    "system",
	RoleUser:      "user",
	RoleAssistant: "assistant",
}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// ParseRole accepts a role name or its numeric value.
func ParseRole(s string) (Role, error) {
	for r, name := range roleNames {
		if s == name || s == fmt.Sprint(int(r)) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("invalid role %q (valid: system, user, assistant)", s)
}

// DefaultDepth is the injection depth used when none is stored.
const DefaultDepth = 2

// Default settings values.
const (
	DefaultWrapperTemplate  = "<tag>{{PROMPT}}</tag>"
	DefaultAdditionalJoiner = `\n\n`
)

// Settings are the per-persona composition settings.
type Settings struct {
	WrapperEnabled   bool   `json:"wrapperEnabled"`
	WrapperTemplate  string `json:"wrapperTemplate"`
	AdditionalJoiner string `json:"additionalJoiner"`
}

// DefaultSettings returns the settings of a fresh persona record.
func DefaultSettings() Settings {
	return Settings{
		WrapperTemplate:  DefaultWrapperTemplate,
		AdditionalJoiner: DefaultAdditionalJoiner,
	}
}

// PmeData is the per-persona block record.
type PmeData struct {
	Version  int      `json:"version"`
	Blocks   Blocks   `json:"blocks"`
	Settings Settings `json:"settings"`
}

// Local holds the description fields used while a persona is unlinked.
type Local struct {
	Description string   `json:"description"`
	Position    Position `json:"position"`
	Depth       int      `json:"depth"`
	Role        Role     `json:"role"`
}

// DefaultLocal returns an empty local copy with host defaults.
func DefaultLocal() Local {
	return Local{Position: PositionInPrompt, Depth: DefaultDepth, Role: RoleSystem}
}

// Extension is the "pme" sub-object of a persona descriptor.
type Extension struct {
	PmeData
	LinkedToNative bool  `json:"linkedToNative"`
	Local          Local `json:"local"`
}

// NewExtension returns a fresh, linked record.
func NewExtension() *Extension {
	return &Extension{
		PmeData: PmeData{
			Version:  SchemaVersion,
			Blocks:   Blocks{},
			Settings: DefaultSettings(),
		},
		LinkedToNative: true,
		Local:          DefaultLocal(),
	}
}

// PersonaDescriptor is the host-owned record of one persona.
type PersonaDescriptor struct {
	Description string     `json:"description"`
	Title       string     `json:"title,omitempty"`
	Position    Position   `json:"position"`
	Depth       int        `json:"depth"`
	Role        Role       `json:"role"`
	Lorebook    string     `json:"lorebook,omitempty"`
	Pme         *Extension `json:"pme,omitempty"`
}

// Linked reports whether the persona mirrors the host's native fields.
// A descriptor without extension data is linked.
func (d *PersonaDescriptor) Linked() bool {
	if d == nil || d.Pme == nil {
		return true
	}
	return d.Pme.LinkedToNative
}

// EffectiveDescription returns the description the persona currently uses:
// the native one when linked, the local copy otherwise.
func (d *PersonaDescriptor) EffectiveDescription() string {
	if d == nil {
		return ""
	}
	if !d.Linked() {
		return d.Pme.Local.Description
	}
	return d.Description
}

// LiveConfig holds the host's four live generation-relevant fields.
// It doubles as the snapshot type of the patch controller.
type LiveConfig struct {
	Description string   `json:"description"`
	Position    Position `json:"position"`
	Depth       int      `json:"depth"`
	Role        Role     `json:"role"`
}

// DefaultLiveConfig returns the host defaults.
func DefaultLiveConfig() LiveConfig {
	return LiveConfig{Position: PositionInPrompt, Depth: DefaultDepth, Role: RoleSystem}
}
