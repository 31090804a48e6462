// Package envelope defines the typed protocol messages streamed by a
// generative agent to build a declarative UI surface, and the decoder that
// turns a raw newline-delimited record stream into a sequence of envelopes.
//
// Each wire record is one JSON object with exactly one top-level variant
// populated:
//
//	{"surfaceUpdate":   {"surfaceId": ..., "components": [...]}}
//	{"dataModelUpdate": {"surfaceId": ..., "path": ..., "contents": [...]}}
//	{"beginRendering":  {"surfaceId": ...}}
//	{"deleteSurface":   {"surfaceId": ...}}
//
// Envelopes must be applied in arrival order; ordering is the contract,
// scheduling is the caller's concern.
//
// Component payloads form a closed tagged union over the ten supported kinds.
// Legacy field spellings observed in the wild (dataBinding for dataPath, a
// plain string where a literalString wrapper is expected) are normalized here,
// at ingestion, so downstream code sees a single canonical shape.
package envelope
