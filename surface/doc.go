// Package surface maintains the streamed state of agent-driven UI surfaces.
//
// A Surface is one independently addressable UI tree: a flat component
// registry (insertion-ordered, last write per id wins), a hierarchical data
// model rooted at "/", and a readiness flag. State is built by a sequential
// fold: Apply consumes one envelope at a time, in arrival order, and never
// fails for well-formed envelopes - with one deliberate exception, surface
// updates that would introduce a component cycle are rejected up front so the
// recursive renderer never needs a visited-set guard.
//
// The package also provides the slash-path resolver used for data bindings
// and the root derivation that computes render entry points from the flat
// registry. Roots are recomputed fresh per render pass; correctness after
// arbitrary replace/delete outweighs incremental maintenance at this scale.
//
// Store serializes writers and hands out deep-copy snapshots, so rendering
// can run on any goroutine without interleaving with an in-progress fold.
package surface
