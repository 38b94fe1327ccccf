package driver

import (
	"context"

	"golang.org/x/sync/errgroup"

	"consair/internal/cache"
	"consair/internal/compiler"
	"consair/internal/symbol"
	"consair/internal/value"
)

// precomputedCache answers compiler.ResultCache.Lookup from a table
// filled up front, so the single-threaded codegen pass that follows
// reads a plain map instead of taking the shared cache's lock; each
// Lookup still hashes the form once to find its entry.
type precomputedCache struct {
	hits map[string]cachedResult
}

type cachedResult struct {
	tag  uint8
	data uint64
}

func (p *precomputedCache) Lookup(form *value.Value) (uint8, uint64, bool) {
	r, ok := p.hits[cache.HashExpression(form)]
	return r.tag, r.data, ok
}

var _ compiler.ResultCache = (*precomputedCache)(nil)

// precomputeCacheHits hashes and looks up every non-label top-level form
// against c concurrently — the one step either driver parallelizes: the
// CPU-bound hashing and purity analysis of each form runs on its own
// goroutine, and the single shared LLVM context is only ever touched
// afterward, on the calling goroutine, during the sequential codegen
// pass that follows.
func precomputeCacheHits(ctx context.Context, forms []*value.Value, c *cache.Cache) (*precomputedCache, error) {
	hits := make([]struct {
		key string
		cachedResult
		ok bool
	}, len(forms))

	g, _ := errgroup.WithContext(ctx)
	for i, form := range forms {
		i, form := i, form
		if isLabelForm(form) {
			continue
		}
		g.Go(func() error {
			tag, data, ok := c.Lookup(form)
			hits[i] = struct {
				key string
				cachedResult
				ok bool
			}{key: cache.HashExpression(form), cachedResult: cachedResult{tag: tag, data: data}, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	table := make(map[string]cachedResult)
	for _, h := range hits {
		if h.ok {
			table[h.key] = h.cachedResult
		}
	}
	return &precomputedCache{hits: table}, nil
}

// isLabelForm reports whether form is a top-level (label name (lambda
// params body)) definition, mirroring compiler's own classification
// without depending on its unexported helper.
func isLabelForm(form *value.Value) bool {
	items, proper := form.Slice()
	return proper && len(items) == 3 && items[0].Kind == value.KindSymbol && items[0].Sym == symbol.Label
}
