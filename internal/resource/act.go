package resource

import "fmt"

// Act is the configuration of one step of a narrative: either a sequence of
// inputs to send to the provider, or a reference to a sub-narrative to
// compose. Exactly one of (non-empty Inputs) or (non-empty NarrativeRef)
// must hold.
type Act struct {
	Inputs       []Input
	Model        string
	Temperature  *float64
	MaxTokens    *int
	NarrativeRef string
}

// IsComposition reports whether this act dispatches to a sub-narrative
// rather than calling the provider directly.
func (a Act) IsComposition() bool {
	return a.NarrativeRef != ""
}

// Validate enforces the act-config invariant: exactly one of non-empty
// inputs or non-empty narrative_ref.
func (a Act) Validate() error {
	hasInputs := len(a.Inputs) > 0
	hasRef := a.NarrativeRef != ""
	switch {
	case hasInputs && hasRef:
		return fmt.Errorf("resource: act has both inputs and narrative_ref; exactly one is required")
	case !hasInputs && !hasRef:
		return fmt.Errorf("resource: act has neither inputs nor narrative_ref; exactly one is required")
	}
	for i, in := range a.Inputs {
		if err := in.Validate(); err != nil {
			return fmt.Errorf("resource: act input %d: %w", i, err)
		}
	}
	return nil
}
