package fallback

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	domain "github.com/bryanwahyu/thoraxsense/internal/domain/scans"
)

// Generator implementasi domain.Fallback: pilih acak dari katalog demo dengan
// delay minimal yang mensimulasikan waktu proses. Tidak pernah gagal.
type Generator struct {
	mu         sync.Mutex
	randSource *rand.Rand
	delay      time.Duration
}

func NewGenerator(delay time.Duration) *Generator {
	// Create a dedicated random source to avoid contention
	src := rand.NewSource(time.Now().UnixNano())
	return &Generator{randSource: rand.New(src), delay: delay}
}

// NewGeneratorWithRand supaya tes bisa inject sumber acak deterministik.
func NewGeneratorWithRand(delay time.Duration, r *rand.Rand) *Generator {
	return &Generator{randSource: r, delay: delay}
}

func (g *Generator) Generate(ctx context.Context) *domain.DiagnosticRecord {
	if g.delay > 0 {
		t := time.NewTimer(g.delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}

	g.mu.Lock()
	p, conf := domain.PickFallback(g.randSource)
	g.mu.Unlock()

	return &domain.DiagnosticRecord{
		Disease:         p.Disease,
		Confidence:      fmt.Sprintf("%d%%", conf),
		Findings:        append([]string(nil), p.Findings...),
		Recommendations: append([]string(nil), p.Recommendations...),
		Source:          domain.SourceFallback,
		ProducedAt:      time.Now(),
	}
}
