package blocks

import (
	"github.com/rcliao/persona-extended/internal/model"
)

// LinkSource selects which side wins when a persona is re-linked.
type LinkSource int

const (
	// LinkSourceNative overwrites the local copy with the native values.
	LinkSourceNative LinkSource = iota
	// LinkSourceExtended pushes the local copy into the native values.
	LinkSourceExtended
)

// Linked reports whether the current persona mirrors the native fields.
func (s *Store) Linked() bool {
	_, ext := s.ext()
	return ext.LinkedToNative
}

// Local returns the current persona's unlinked description fields.
func (s *Store) Local() model.Local {
	_, ext := s.ext()
	return ext.Local
}

func liveOrDefault(live *model.LiveConfig) model.LiveConfig {
	if live == nil {
		return model.DefaultLiveConfig()
	}
	return *live
}

func snapshotNativeToLocal(ext *model.Extension, live *model.LiveConfig) {
	lc := liveOrDefault(live)
	ext.Local = model.Local{
		Description: lc.Description,
		Position:    lc.Position,
		Depth:       lc.Depth,
		Role:        lc.Role,
	}
}

// Unlink detaches the current persona from the native fields, copying the
// native values into the local copy first. Unlinking twice does nothing.
func (s *Store) Unlink() {
	_, ext := s.ext()
	if !ext.LinkedToNative {
		return
	}
	snapshotNativeToLocal(ext, s.personas.Live())
	ext.LinkedToNative = false
	s.save()
}

// Link re-attaches the current persona. With LinkSourceNative the local
// copy is overwritten by the native values; with LinkSourceExtended the
// local copy is written into the live config and the descriptor.
func (s *Store) Link(source LinkSource) {
	d, ext := s.ext()
	if ext.LinkedToNative {
		return
	}
	live := s.personas.Live()
	if ext.Local.Description == "" {
		snapshotNativeToLocal(ext, live)
	}

	ext.LinkedToNative = true
	switch source {
	case LinkSourceNative:
		snapshotNativeToLocal(ext, live)
	case LinkSourceExtended:
		if live != nil {
			live.Description = ext.Local.Description
			live.Position = ext.Local.Position
			live.Depth = ext.Local.Depth
			live.Role = ext.Local.Role
		}
		d.Description = ext.Local.Description
		d.Position = ext.Local.Position
		d.Depth = ext.Local.Depth
		d.Role = ext.Local.Role
	}
	s.save()
}

// set writes through to the live config and descriptor when linked, or to
// the local copy when unlinked.
func (s *Store) set(native func(*model.LiveConfig, *model.PersonaDescriptor), local func(*model.Local)) {
	d, ext := s.ext()
	if ext.LinkedToNative {
		native(s.personas.Live(), d)
	} else {
		local(&ext.Local)
	}
	s.save()
}

// SetDescription sets the persona's base description.
func (s *Store) SetDescription(text string) {
	s.set(func(live *model.LiveConfig, d *model.PersonaDescriptor) {
		if live != nil {
			live.Description = text
		}
		d.Description = text
	}, func(l *model.Local) { l.Description = text })
}

// SetPosition sets the injection position.
func (s *Store) SetPosition(p model.Position) {
	s.set(func(live *model.LiveConfig, d *model.PersonaDescriptor) {
		if live != nil {
			live.Position = p
		}
		d.Position = p
	}, func(l *model.Local) { l.Position = p })
}

// SetDepth sets the at-depth injection depth. Negative depths are clamped
// to zero.
func (s *Store) SetDepth(depth int) {
	if depth < 0 {
		depth = 0
	}
	s.set(func(live *model.LiveConfig, d *model.PersonaDescriptor) {
		if live != nil {
			live.Depth = depth
		}
		d.Depth = depth
	}, func(l *model.Local) { l.Depth = depth })
}

// SetRole sets the at-depth injection role.
func (s *Store) SetRole(r model.Role) {
	s.set(func(live *model.LiveConfig, d *model.PersonaDescriptor) {
		if live != nil {
			live.Role = r
		}
		d.Role = r
	}, func(l *model.Local) { l.Role = r })
}
