package resource

import "fmt"

// MediaDef is a root-level media resource definition, resolved by name from
// a shorthand reference such as "media.cover".
type MediaDef struct {
	Kind     InputKind // InputKindImage/Audio/Video/Document
	MIME     string
	Source   MediaSource
	Filename string
}

// Resources groups the root-level bots/tables/media definitions a
// multi-narrative document may declare, referenced from acts by shorthand
// "<category>.<name>" strings.
type Resources struct {
	Bots   map[string]BotCommand
	Tables map[string]Table
	Media  map[string]MediaDef
}

// CarouselConfig configures the executor's outer TOC-repeating loop.
type CarouselConfig struct {
	Iterations         *uint32
	BudgetMultiplier   *float32
	StopOnFirstError   bool
}

// IterationCount returns the configured iteration count, defaulting to 1.
func (c *CarouselConfig) IterationCount() uint32 {
	if c == nil || c.Iterations == nil {
		return 1
	}
	return *c.Iterations
}

// Narrative is a single, fully-resolved narrative: its acts, the order to
// execute them in, and optional carousel/template configuration.
type Narrative struct {
	Name                 string
	Description          string
	Template             string
	Acts                 map[string]Act
	TOC                  []string
	Carousel             *CarouselConfig
	SkipContentGeneration bool
}

// Validate checks the TOC-membership invariant: every name in TOC has a
// defined act.
func (n Narrative) Validate() error {
	for _, name := range n.TOC {
		if _, ok := n.Acts[name]; !ok {
			return &TocRefersToUnknownActError{Act: name}
		}
	}
	for name, act := range n.Acts {
		if err := act.Validate(); err != nil {
			return fmt.Errorf("resource: narrative %q act %q: %w", n.Name, name, err)
		}
	}
	return nil
}

// MultiNarrative groups several narratives that share root-level resources
// and a pool of shared acts.
type MultiNarrative struct {
	Narratives     map[string]Narrative
	SharedActs     map[string]Act
	SharedResources Resources
}

// NarrativeSourceKind discriminates the NarrativeSource sum type.
type NarrativeSourceKind string

const (
	NarrativeSourceKindSingle           NarrativeSourceKind = "single"
	NarrativeSourceKindMultiWithContext NarrativeSourceKind = "multi_with_context"
)

// NarrativeSource is what the executor receives: either a single resolved
// narrative, or a multi-narrative context plus the name to execute within
// it (used when any act in the chain composes via narrative_ref).
type NarrativeSource struct {
	Kind NarrativeSourceKind

	Single *Narrative

	Multi       *MultiNarrative
	ExecuteName string
}

func NewSingleSource(n Narrative) NarrativeSource {
	return NarrativeSource{Kind: NarrativeSourceKindSingle, Single: &n}
}

func NewMultiWithContextSource(m MultiNarrative, executeName string) NarrativeSource {
	return NarrativeSource{Kind: NarrativeSourceKindMultiWithContext, Multi: &m, ExecuteName: executeName}
}

// Resolve returns the concrete Narrative this source currently targets: the
// single narrative, or the named narrative from the multi-narrative context.
func (s NarrativeSource) Resolve() (Narrative, error) {
	switch s.Kind {
	case NarrativeSourceKindSingle:
		if s.Single == nil {
			return Narrative{}, fmt.Errorf("resource: single narrative source has no narrative")
		}
		return *s.Single, nil
	case NarrativeSourceKindMultiWithContext:
		if s.Multi == nil {
			return Narrative{}, fmt.Errorf("resource: multi narrative source has no context")
		}
		n, ok := s.Multi.Narratives[s.ExecuteName]
		if !ok {
			return Narrative{}, &NarrativeNotFoundError{Name: s.ExecuteName}
		}
		return n, nil
	default:
		return Narrative{}, fmt.Errorf("resource: unknown narrative source kind %q", s.Kind)
	}
}
