// Package patch applies the composed persona prompt to the host's live
// configuration for the duration of one generation and restores it
// afterwards.
package patch

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/persona-extended/internal/compose"
	"github.com/rcliao/persona-extended/internal/model"
)

// DefaultRestoreTimeout bounds how long a patch may stay applied when no
// completion signal arrives.
const DefaultRestoreTimeout = 30 * time.Second

// Host is the part of the host application the controller reads and patches.
type Host interface {
	// Enabled reports whether the extension is switched on.
	Enabled() bool
	// Current returns the current persona, or nil.
	Current() *model.PersonaDescriptor
	// Live returns the host's live configuration, or nil if unavailable.
	Live() *model.LiveConfig
}

// Lifecycle is the host's generation event registration surface.
type Lifecycle interface {
	OnAfterCommands(fn func(dryRun bool))
	OnEnded(fn func())
	OnStopped(fn func())
	SetInterceptor(fn func())
}

// State is the controller's patch state.
type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Controller owns the transient patch window. Create one per host with New.
type Controller struct {
	host    Host
	compose func(*model.PersonaDescriptor, *model.LiveConfig) compose.Result
	timeout time.Duration
	log     *zap.Logger
	hostMu  sync.Locker

	mu       sync.Mutex
	state    State
	target   *model.LiveConfig
	snapshot model.LiveConfig
	timer    *time.Timer
	epoch    uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithRestoreTimeout sets the fallback restore delay.
func WithRestoreTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the controller's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithHostLocker sets the lock that guards the host's live config. Restores
// that do not run inside a host callback (the timeout and Close) take it
// before the controller lock.
func WithHostLocker(l sync.Locker) Option {
	return func(c *Controller) { c.hostMu = l }
}

// WithComposer replaces compose.Compose.
func WithComposer(fn func(*model.PersonaDescriptor, *model.LiveConfig) compose.Result) Option {
	return func(c *Controller) { c.compose = fn }
}

// New returns an idle controller for host.
func New(host Host, opts ...Option) *Controller {
	c := &Controller{
		host:    host,
		compose: compose.Compose,
		timeout: DefaultRestoreTimeout,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.Named("patch")
	return c
}

// Bind registers the controller on the host's generation lifecycle.
func (c *Controller) Bind(lc Lifecycle) {
	lc.OnAfterCommands(func(dryRun bool) { c.OnBeforeGeneration(dryRun) })
	lc.OnEnded(c.OnGenerationEnded)
	lc.OnStopped(c.OnGenerationStopped)
	lc.SetInterceptor(func() { c.Intercept() })
}

// OnBeforeGeneration is the primary apply path, run after slash commands
// and before prompt assembly. Dry runs never patch.
func (c *Controller) OnBeforeGeneration(dryRun bool) bool {
	if dryRun {
		c.log.Debug("skip apply: dry run")
		return false
	}
	return c.Apply()
}

// Intercept is the fallback apply path for hosts that reach the generate
// interceptor without firing the primary hook.
func (c *Controller) Intercept() bool {
	return c.Apply()
}

// OnGenerationEnded restores the live config after a normal completion.
func (c *Controller) OnGenerationEnded() { c.Restore() }

// OnGenerationStopped restores the live config after an abort.
func (c *Controller) OnGenerationStopped() { c.Restore() }

// Apply writes the composed persona into the live config and arms the
// restore timer. It reports whether a patch was applied. Any failure,
// including a panic while composing, leaves the host untouched.
func (c *Controller) Apply() (applied bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("apply failed", zap.Any("panic", r))
			applied = false
		}
	}()

	if !c.host.Enabled() {
		c.log.Debug("skip apply: extension disabled")
		return false
	}
	if c.state == Active {
		c.log.Debug("skip apply: already active")
		return false
	}
	live := c.host.Live()
	if live == nil {
		c.log.Debug("skip apply: no live config")
		return false
	}

	res := c.compose(c.host.Current(), live)
	if !res.HasAnyEffect {
		c.log.Debug("skip apply: nothing to inject")
		return false
	}
	if res.FinalPosition == model.PositionNone {
		c.log.Debug("skip apply: position none")
		return false
	}
	next := res.LiveConfig()
	if next == *live {
		c.log.Debug("skip apply: live config already matches")
		return false
	}

	c.snapshot = *live
	c.target = live
	*live = next
	c.state = Active
	c.epoch++
	epoch := c.epoch
	c.timer = time.AfterFunc(c.timeout, func() { c.expire(epoch) })

	c.log.Debug("applied persona patch",
		zap.Int("chars", len(next.Description)),
		zap.Stringer("position", next.Position),
		zap.Int("depth", next.Depth),
		zap.Stringer("role", next.Role))
	return true
}

// Restore puts the snapshot back into the live config. It reports whether
// anything was restored; calling it while idle does nothing.
func (c *Controller) Restore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restoreLocked()
}

func (c *Controller) restoreLocked() bool {
	if c.state != Active {
		return false
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	*c.target = c.snapshot
	c.target = nil
	c.snapshot = model.LiveConfig{}
	c.state = Idle
	c.log.Debug("restored live config")
	return true
}

func (c *Controller) lockHost() func() {
	if c.hostMu == nil {
		return func() {}
	}
	c.hostMu.Lock()
	return c.hostMu.Unlock
}

func (c *Controller) expire(epoch uint64) {
	defer c.lockHost()()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Active || c.epoch != epoch {
		return
	}
	c.log.Warn("no generation completion signal, restoring after timeout",
		zap.Duration("timeout", c.timeout))
	c.restoreLocked()
}

// State returns the current patch state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active reports whether a patch is applied.
func (c *Controller) Active() bool { return c.State() == Active }

// Snapshot returns the live values captured before the current patch.
func (c *Controller) Snapshot() (model.LiveConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot, c.state == Active
}

// Durable returns the live values safe to persist: the pre-patch snapshot
// while a patch is applied, the current contents of live otherwise. Reading
// under the controller lock keeps a concurrent timeout restore from
// exposing patched text.
func (c *Controller) Durable(live *model.LiveConfig) model.LiveConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Active {
		return c.snapshot
	}
	if live == nil {
		return model.DefaultLiveConfig()
	}
	return *live
}

// Close restores any applied patch and stops the restore timer. It must
// not be called while holding the host lock.
func (c *Controller) Close() {
	defer c.lockHost()()
	c.Restore()
}
