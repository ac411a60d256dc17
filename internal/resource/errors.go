package resource

import "fmt"

// NarrativeNotFoundError reports a reference to a narrative name absent
// from a MultiNarrative's Narratives map.
type NarrativeNotFoundError struct{ Name string }

func (e *NarrativeNotFoundError) Error() string {
	return fmt.Sprintf("narrative not found: %q", e.Name)
}

// ReferenceNotFoundError reports an unresolved "<category>.<name>" shorthand.
type ReferenceNotFoundError struct{ Category, Name string }

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("reference not found: %s.%s", e.Category, e.Name)
}

// AmbiguousNarrativeError reports a multi-narrative document where the
// caller's selection criteria match more than one narrative.
type AmbiguousNarrativeError struct{ Candidates []string }

func (e *AmbiguousNarrativeError) Error() string {
	return fmt.Sprintf("ambiguous narrative: candidates %v", e.Candidates)
}

// CompositionRequiresMultiNarrativeError reports an act with a narrative_ref
// resolved from a Single source, which has no shared context to resolve
// the reference against.
type CompositionRequiresMultiNarrativeError struct{ Name string }

func (e *CompositionRequiresMultiNarrativeError) Error() string {
	return fmt.Sprintf("composition %q requires a multi-narrative context", e.Name)
}

// TocRefersToUnknownActError reports a TOC entry with no matching act.
type TocRefersToUnknownActError struct{ Act string }

func (e *TocRefersToUnknownActError) Error() string {
	return fmt.Sprintf("toc refers to unknown act: %q", e.Act)
}

// CyclicCompositionError reports a composition chain that revisits a
// narrative already on the call path.
type CyclicCompositionError struct{ Path []string }

func (e *CyclicCompositionError) Error() string {
	return fmt.Sprintf("cyclic composition: %v", e.Path)
}
