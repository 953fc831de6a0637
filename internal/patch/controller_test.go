package patch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rcliao/persona-extended/internal/compose"
	"github.com/rcliao/persona-extended/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeHost struct {
	enabled bool
	persona *model.PersonaDescriptor
	live    *model.LiveConfig
}

func (h *fakeHost) Enabled() bool                     { return h.enabled }
func (h *fakeHost) Current() *model.PersonaDescriptor { return h.persona }
func (h *fakeHost) Live() *model.LiveConfig           { return h.live }

var native = model.LiveConfig{Description: "Hello", Position: model.PositionInPrompt, Depth: 2, Role: model.RoleSystem}

func newHost(texts ...string) *fakeHost {
	ext := model.NewExtension()
	for _, text := range texts {
		ext.Blocks = append(ext.Blocks, &model.Item{ID: text, Title: text, Text: text, Enabled: true})
	}
	live := native
	return &fakeHost{enabled: true, persona: &model.PersonaDescriptor{Pme: ext}, live: &live}
}

func newController(t *testing.T, h Host, opts ...Option) *Controller {
	t.Helper()
	c := New(h, opts...)
	t.Cleanup(c.Close)
	return c
}

func TestApplyAndRestore(t *testing.T) {
	h := newHost("World")
	c := newController(t, h)

	require.True(t, c.OnBeforeGeneration(false))
	assert.Equal(t, Active, c.State())
	assert.Equal(t, "Hello\n\nWorld", h.live.Description)
	snap, ok := c.Snapshot()
	assert.True(t, ok)
	assert.Equal(t, native, snap)

	c.OnGenerationEnded()
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, native, *h.live)
	_, ok = c.Snapshot()
	assert.False(t, ok)
}

func TestStopRestores(t *testing.T) {
	h := newHost("World")
	c := newController(t, h)

	require.True(t, c.Apply())
	c.OnGenerationStopped()
	assert.Equal(t, native, *h.live)
	assert.False(t, c.Active())
}

func TestApplyTwiceSnapshotsOnce(t *testing.T) {
	h := newHost("World")
	c := newController(t, h)

	require.True(t, c.Apply())
	assert.False(t, c.Apply())
	assert.False(t, c.Intercept(), "fallback path honors the active guard")

	snap, ok := c.Snapshot()
	require.True(t, ok)
	assert.Equal(t, native, snap, "second apply must not snapshot patched values")

	c.Restore()
	assert.Equal(t, native, *h.live)
}

func TestRestoreWhileIdleIsNoOp(t *testing.T) {
	h := newHost("World")
	c := newController(t, h)

	assert.NotPanics(t, func() {
		assert.False(t, c.Restore())
		c.OnGenerationEnded()
		c.OnGenerationStopped()
	})
	assert.Equal(t, native, *h.live)
}

func TestApplyGuards(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(h *fakeHost)
		dryRun bool
	}{
		{name: "dry run", dryRun: true},
		{name: "disabled", mutate: func(h *fakeHost) { h.enabled = false }},
		{name: "no live config", mutate: func(h *fakeHost) { h.live = nil }},
		{name: "no effect", mutate: func(h *fakeHost) {
			h.live.Description = ""
			h.persona.Pme.Blocks = nil
		}},
		{name: "position none", mutate: func(h *fakeHost) { h.live.Position = model.PositionNone }},
		{name: "already matches", mutate: func(h *fakeHost) { h.persona.Pme.Blocks = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHost("World")
			if tt.mutate != nil {
				tt.mutate(h)
			}
			var before *model.LiveConfig
			if h.live != nil {
				lc := *h.live
				before = &lc
			}
			c := newController(t, h)

			assert.False(t, c.OnBeforeGeneration(tt.dryRun))
			assert.Equal(t, Idle, c.State())
			if before != nil {
				assert.Equal(t, *before, *h.live)
			}
		})
	}
}

func TestUnlinkedPersonaPatchesAllFields(t *testing.T) {
	h := newHost("extra")
	h.persona.Pme.LinkedToNative = false
	h.persona.Pme.Local = model.Local{Description: "local", Position: model.PositionAtDepth, Depth: 5, Role: model.RoleUser}
	c := newController(t, h)

	require.True(t, c.Apply())
	assert.Equal(t, model.LiveConfig{Description: "local\n\nextra", Position: model.PositionAtDepth, Depth: 5, Role: model.RoleUser}, *h.live)

	c.Restore()
	assert.Equal(t, native, *h.live)
}

func TestTimeoutRestores(t *testing.T) {
	h := newHost("World")
	c := newController(t, h, WithRestoreTimeout(20*time.Millisecond))

	require.True(t, c.Apply())
	require.Eventually(t, func() bool { return !c.Active() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, native, c.Durable(h.live))
}

func TestStaleTimerDoesNotRestoreLaterPatch(t *testing.T) {
	h := newHost("World")
	c := newController(t, h)

	require.True(t, c.Apply())
	c.mu.Lock()
	stale := c.epoch
	c.mu.Unlock()
	c.Restore()
	require.True(t, c.Apply())

	// A timer armed for the first window fires after the second apply.
	c.expire(stale)
	assert.True(t, c.Active())
	assert.Equal(t, "Hello\n\nWorld", h.live.Description)

	c.mu.Lock()
	current := c.epoch
	c.mu.Unlock()
	c.expire(current)
	assert.False(t, c.Active())
	assert.Equal(t, native, *h.live)
}

func TestTimeoutWaitsForHostLock(t *testing.T) {
	h := newHost("World")
	var hostMu sync.Mutex
	c := newController(t, h, WithRestoreTimeout(5*time.Millisecond), WithHostLocker(&hostMu))

	hostMu.Lock()
	require.True(t, c.Apply())
	time.Sleep(30 * time.Millisecond)
	assert.True(t, c.Active(), "restore must not run while the host lock is held")
	assert.Equal(t, "Hello\n\nWorld", h.live.Description)
	hostMu.Unlock()

	require.Eventually(t, func() bool { return !c.Active() }, time.Second, 5*time.Millisecond)
	hostMu.Lock()
	assert.Equal(t, native, *h.live)
	hostMu.Unlock()
}

func TestComposerPanicLeavesHostUntouched(t *testing.T) {
	h := newHost("World")
	c := newController(t, h, WithComposer(func(*model.PersonaDescriptor, *model.LiveConfig) compose.Result {
		panic("boom")
	}))

	assert.NotPanics(t, func() { assert.False(t, c.Apply()) })
	assert.Equal(t, native, *h.live)
	assert.False(t, c.Active())
}

func TestDurableHidesPatchedValues(t *testing.T) {
	h := newHost("World")
	c := newController(t, h)

	assert.Equal(t, native, c.Durable(h.live))
	require.True(t, c.Apply())
	assert.Equal(t, native, c.Durable(h.live))
	assert.NotEqual(t, native, *h.live)
	assert.Equal(t, model.DefaultLiveConfig(), New(h).Durable(nil))
}

type fakeLifecycle struct {
	after       func(bool)
	ended       func()
	stopped     func()
	interceptor func()
}

func (l *fakeLifecycle) OnAfterCommands(fn func(bool)) { l.after = fn }
func (l *fakeLifecycle) OnEnded(fn func())             { l.ended = fn }
func (l *fakeLifecycle) OnStopped(fn func())           { l.stopped = fn }
func (l *fakeLifecycle) SetInterceptor(fn func())      { l.interceptor = fn }

func TestBind(t *testing.T) {
	h := newHost("World")
	c := newController(t, h)
	lc := &fakeLifecycle{}
	c.Bind(lc)

	lc.after(true)
	assert.False(t, c.Active())
	lc.interceptor()
	assert.True(t, c.Active())
	lc.stopped()
	assert.False(t, c.Active())
	lc.after(false)
	assert.True(t, c.Active())
	lc.ended()
	assert.Equal(t, native, *h.live)
}
