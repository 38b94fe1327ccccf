package compiler

import (
	"sort"

	"consair/internal/symbol"
	"consair/internal/value"
)

// freeVariables computes the free variables of body: every symbol
// reference not bound by an enclosing lambda/label parameter list, not
// `t`/`nil`, not a primitive operator name, and not already resolvable
// directly through fnTable. Quoted data contributes nothing — it is
// never evaluated. Returns the keys in a stable (sorted) order so
// closure capture layout is deterministic.
func (c *Compiler) freeVariables(body *value.Value, bound map[uint64]bool) []uint64 {
	free := make(map[uint64]bool)
	c.walkFree(body, bound, free)
	keys := make([]uint64, 0, len(free))
	for k := range free {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (c *Compiler) walkFree(v *value.Value, bound map[uint64]bool, free map[uint64]bool) {
	switch v.Kind {
	case value.KindSymbol:
		key := v.Sym.Key()
		if v.Sym == symbol.T || v.Sym == symbol.Nil {
			return
		}
		if bound[key] {
			return
		}
		if _, isPrim := primitives[key]; isPrim {
			return
		}
		if _, inFnTable := c.fnTable[key]; inFnTable {
			return
		}
		free[key] = true

	case value.KindCons:
		items, proper := v.Slice()
		if proper && len(items) >= 1 && items[0].Kind == value.KindSymbol {
			switch items[0].Sym {
			case symbol.Quote:
				return
			case symbol.Cond, symbol.If:
				// Keywords, not runtime values: walk the clauses/branches
				// but never the operator symbol itself.
				for _, it := range items[1:] {
					c.walkFree(it, bound, free)
				}
				return
			case symbol.Lambda:
				if len(items) == 3 {
					c.walkFree(items[2], extendBoundWithParams(bound, items[1]), free)
					return
				}
			case symbol.Label:
				if len(items) == 3 {
					lItems, lProper := items[2].Slice()
					if lProper && len(lItems) == 3 && lItems[0].Kind == value.KindSymbol && lItems[0].Sym == symbol.Lambda {
						nested := copyBound(bound)
						if items[1].Kind == value.KindSymbol {
							nested[items[1].Sym.Key()] = true
						}
						nested = extendBoundWithParams(nested, lItems[1])
						c.walkFree(lItems[2], nested, free)
						return
					}
				}
			}
		}
		if proper {
			for _, it := range items {
				c.walkFree(it, bound, free)
			}
		} else {
			c.walkFree(v.Car, bound, free)
			c.walkFree(v.Cdr, bound, free)
		}

	case value.KindVector:
		for _, e := range v.Elems {
			c.walkFree(e, bound, free)
		}
	}
}

func copyBound(bound map[uint64]bool) map[uint64]bool {
	out := make(map[uint64]bool, len(bound)+1)
	for k := range bound {
		out[k] = true
	}
	return out
}

func extendBoundWithParams(bound map[uint64]bool, paramsList *value.Value) map[uint64]bool {
	out := copyBound(bound)
	items, _ := paramsList.Slice()
	for _, p := range items {
		if p.Kind == value.KindSymbol {
			out[p.Sym.Key()] = true
		}
	}
	return out
}
