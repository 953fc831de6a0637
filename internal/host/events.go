package host

import "sync"

// Bus carries generation lifecycle events and the single generate
// interceptor slot.
type Bus struct {
	mu          sync.Mutex
	after       []func(dryRun bool)
	ended       []func()
	stopped     []func()
	interceptor func()
}

// NewBus returns an empty bus.
func NewBus() *Bus { return &Bus{} }

// OnAfterCommands subscribes to the point after slash commands ran and
// before the prompt is assembled.
func (b *Bus) OnAfterCommands(fn func(dryRun bool)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.after = append(b.after, fn)
}

// OnEnded subscribes to normal generation completion.
func (b *Bus) OnEnded(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ended = append(b.ended, fn)
}

// OnStopped subscribes to generation aborts.
func (b *Bus) OnStopped(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = append(b.stopped, fn)
}

// SetInterceptor fills the interceptor slot. An interceptor that is
// already registered is kept.
func (b *Bus) SetInterceptor(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.interceptor == nil {
		b.interceptor = fn
	}
}

// Interceptor returns the registered interceptor, or nil.
func (b *Bus) Interceptor() func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.interceptor
}

func (b *Bus) emitAfterCommands(dryRun bool) {
	b.mu.Lock()
	fns := append([]func(bool){}, b.after...)
	b.mu.Unlock()
	for _, fn := range fns {
		fn(dryRun)
	}
}

func emit(mu *sync.Mutex, list *[]func()) {
	mu.Lock()
	fns := append([]func(){}, *list...)
	mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (b *Bus) emitEnded()   { emit(&b.mu, &b.ended) }
func (b *Bus) emitStopped() { emit(&b.mu, &b.stopped) }
