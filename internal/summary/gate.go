// Package summary turns an assembled digest into final prose. A generative
// backend is preferred; a deterministic template guarantees a response when
// it is not reachable.
package summary

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lesovana-debug/vladobot/internal/digest"
)

// Backend renders prose from formatted message lines.
type Backend interface {
	Name() string
	Probe(ctx context.Context) error
	Render(ctx context.Context, lines []string, meta Context) (string, error)
}

const (
	probeTimeout  = 10 * time.Second
	renderTimeout = 90 * time.Second
)

// Gate selects between the generative backend and the deterministic
// fallback. The availability probe runs once per process and the result is
// cached for its lifetime: a backend dying mid-session means fallback-only
// until restart. Deliberate staleness, not an oversight.
type Gate struct {
	primary Backend // nil when not configured
	log     *zap.Logger

	probeOnce sync.Once
	usable    bool
}

func NewGate(primary Backend, log *zap.Logger) *Gate {
	return &Gate{primary: primary, log: log}
}

// Render produces the digest text. Never returns an error: any primary
// backend failure degrades to the deterministic fallback.
func (g *Gate) Render(ctx context.Context, d *digest.Digest, meta Context) string {
	// Empty day: fixed template, never a backend call.
	if len(d.Messages) == 0 {
		return RenderEmpty(meta)
	}

	if !g.primaryUsable(ctx) {
		return RenderFallback(d.Messages, meta)
	}

	lines := FormatLines(d.Messages)

	renderCtx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	text, err := g.primary.Render(renderCtx, lines, meta)
	if err != nil {
		g.log.Warn("generative backend failed, using fallback",
			zap.String("backend", g.primary.Name()),
			zap.Error(err),
		)
		return RenderFallback(d.Messages, meta)
	}
	return text
}

// primaryUsable probes the primary backend on first use and caches the
// verdict for the process lifetime.
func (g *Gate) primaryUsable(ctx context.Context) bool {
	g.probeOnce.Do(func() {
		if g.primary == nil {
			return
		}
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()

		if err := g.primary.Probe(probeCtx); err != nil {
			g.log.Warn("generative backend unavailable, fallback selected for this run",
				zap.String("backend", g.primary.Name()),
				zap.Error(err),
			)
			return
		}
		g.usable = true
		g.log.Info("generative backend selected", zap.String("backend", g.primary.Name()))
	})
	return g.usable
}
