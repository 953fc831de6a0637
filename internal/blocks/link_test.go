package blocks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcliao/persona-extended/internal/model"
)

func TestUnlinkSnapshotsNativeValues(t *testing.T) {
	s, host, _ := newTestStore(t)
	*host.live = model.LiveConfig{Description: "native", Position: model.PositionAtDepth, Depth: 6, Role: model.RoleUser}

	s.Unlink()

	assert.False(t, s.Linked())
	assert.Equal(t, model.Local{Description: "native", Position: model.PositionAtDepth, Depth: 6, Role: model.RoleUser}, s.Local())
}

func TestSettersFollowLinkState(t *testing.T) {
	s, host, _ := newTestStore(t)

	s.SetDescription("linked text")
	s.SetDepth(-3)
	assert.Equal(t, "linked text", host.live.Description)
	assert.Equal(t, "linked text", host.persona.Description)
	assert.Equal(t, 0, host.live.Depth)

	s.Unlink()
	s.SetDescription("local text")
	s.SetPosition(model.PositionTopAN)
	s.SetRole(model.RoleAssistant)

	assert.Equal(t, "linked text", host.live.Description, "unlinked edits stay local")
	assert.Equal(t, model.PositionInPrompt, host.live.Position)
	assert.Equal(t, model.Local{Description: "local text", Position: model.PositionTopAN, Depth: 0, Role: model.RoleAssistant}, s.Local())
}

func TestLinkUsingNative(t *testing.T) {
	s, host, _ := newTestStore(t)
	s.Unlink()
	s.SetDescription("local text")
	host.live.Description = "native text"

	s.Link(LinkSourceNative)

	assert.True(t, s.Linked())
	assert.Equal(t, "native text", s.Local().Description)
	assert.Equal(t, "native text", host.live.Description)
}

func TestLinkUsingExtended(t *testing.T) {
	s, host, saver := newTestStore(t)
	s.Unlink()
	s.SetDescription("local text")
	s.SetPosition(model.PositionBottomAN)

	s.Link(LinkSourceExtended)

	assert.True(t, s.Linked())
	assert.Equal(t, "local text", host.live.Description)
	assert.Equal(t, model.PositionBottomAN, host.live.Position)
	assert.Equal(t, "local text", host.persona.Description)
	assert.Equal(t, model.PositionBottomAN, host.persona.Position)

	before := saver.n
	s.Link(LinkSourceNative)
	assert.Equal(t, before, saver.n, "linking a linked persona does nothing")
}
