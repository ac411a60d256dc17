// Package resource defines the narrative data model: roles, inputs, outputs,
// messages, generation requests/responses, acts, and narratives.
//
// Input, Output, MediaSource and NarrativeSource are modeled as tagged
// variants rather than loosely-typed maps: each is one struct whose Kind
// field reports which variant is set, built through per-variant
// constructor functions. Callers are expected to switch on Kind rather
// than probe fields, mirroring how the rest of this codebase favors interfaces and
// tagged structs over reflection-driven dispatch.
package resource
