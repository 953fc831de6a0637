package host

import (
	"context"

	"go.uber.org/zap"

	"github.com/rcliao/persona-extended/internal/model"
)

// GenerateOptions controls a simulated generation.
type GenerateOptions struct {
	// DryRun assembles the prompt without generating (token counting).
	DryRun bool
	// Stop aborts the generation after prompt assembly.
	Stop bool
}

// PromptPreview is the persona section the host put into the prompt.
type PromptPreview struct {
	Persona     string         `json:"persona"`
	Description string         `json:"description"`
	Position    model.Position `json:"position"`
	Depth       int            `json:"depth"`
	Role        model.Role     `json:"role"`
	Injected    bool           `json:"injected"`
	DryRun      bool           `json:"dry_run,omitempty"`
	Stopped     bool           `json:"stopped,omitempty"`
}

// Generate runs the host's generation lifecycle: after-commands hooks,
// the generate interceptor (skipped for dry runs), prompt assembly from
// the live persona fields, then the ended or stopped signal.
func (h *Host) Generate(ctx context.Context, opts GenerateOptions) (*PromptPreview, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.bus.emitAfterCommands(opts.DryRun)
	if fn := h.bus.Interceptor(); fn != nil && !opts.DryRun {
		fn()
	}

	lc := h.live
	out := &PromptPreview{
		Persona:     h.current,
		Description: lc.Description,
		Position:    lc.Position,
		Depth:       lc.Depth,
		Role:        lc.Role,
		Injected:    lc.Position != model.PositionNone && lc.Description != "",
		DryRun:      opts.DryRun,
	}

	if opts.Stop || ctx.Err() != nil {
		out.Stopped = true
		h.bus.emitStopped()
	} else {
		h.bus.emitEnded()
	}
	h.log.Debug("generation finished",
		zap.Bool("dry_run", opts.DryRun),
		zap.Bool("stopped", out.Stopped),
		zap.Int("persona_chars", len(out.Description)))
	return out, nil
}
