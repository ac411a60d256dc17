package narrative

import (
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/crumplecup/botticelli/internal/errs"
	"github.com/crumplecup/botticelli/internal/resource"
)

// Load parses a narrative document's bytes and returns the NarrativeSource
// the executor should run: Single for a "narration" document, or
// MultiWithContext for a "narratives" document naming executeName. executeName
// is ignored for Single documents.
func Load(data []byte, executeName string) (resource.NarrativeSource, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return resource.NarrativeSource{}, errs.Wrap(errs.Parse, err, "parse narrative document")
	}

	_, isSingle := raw["narration"]
	_, isMulti := raw["narratives"]

	switch {
	case isSingle && isMulti:
		return resource.NarrativeSource{}, errs.New(errs.Parse, "document defines both narration and narratives")
	case isSingle:
		return loadSingle(raw)
	case isMulti:
		return loadMulti(raw, executeName)
	default:
		return resource.NarrativeSource{}, errs.New(errs.Parse, "document defines neither narration nor narratives")
	}
}

func loadSingle(raw map[string]any) (resource.NarrativeSource, error) {
	reencoded, err := toml.Marshal(raw)
	if err != nil {
		return resource.NarrativeSource{}, errs.Wrap(errs.Parse, err, "re-encode single narrative document")
	}
	var doc tomlSingleDoc
	if err := toml.Unmarshal(reencoded, &doc); err != nil {
		return resource.NarrativeSource{}, errs.Wrap(errs.Parse, err, "decode single narrative document")
	}

	n := convertNarrative(doc.Narration)
	if err := n.Validate(); err != nil {
		return resource.NarrativeSource{}, errs.Wrap(errs.Configuration, err, "validate narrative")
	}
	if hasComposition(n.Acts) {
		return resource.NarrativeSource{}, &resource.CompositionRequiresMultiNarrativeError{Name: n.Name}
	}
	return resource.NewSingleSource(n), nil
}

func loadMulti(raw map[string]any, executeName string) (resource.NarrativeSource, error) {
	if executeName == "" {
		return resource.NarrativeSource{}, errs.New(errs.Configuration, "execute_name is required for a multi-narrative document")
	}

	bots, _ := raw["bots"].(map[string]any)
	tables, _ := raw["tables"].(map[string]any)
	media, _ := raw["media"].(map[string]any)

	if err := resolveShorthandInDoc(raw, bots, tables, media); err != nil {
		return resource.NarrativeSource{}, err
	}

	reencoded, err := toml.Marshal(raw)
	if err != nil {
		return resource.NarrativeSource{}, errs.Wrap(errs.Parse, err, "re-encode multi-narrative document")
	}
	var doc tomlMultiDoc
	if err := toml.Unmarshal(reencoded, &doc); err != nil {
		return resource.NarrativeSource{}, errs.Wrap(errs.Parse, err, "decode multi-narrative document")
	}

	if _, ok := doc.Narratives[executeName]; !ok {
		return resource.NarrativeSource{}, &resource.NarrativeNotFoundError{Name: executeName}
	}

	multi := resource.MultiNarrative{
		Narratives:      make(map[string]resource.Narrative, len(doc.Narratives)),
		SharedActs:      convertActs(doc.SharedActs),
		SharedResources: convertResources(doc.Bots, doc.Tables, doc.Media),
	}
	for name, tn := range doc.Narratives {
		n := convertNarrative(tn)
		// Shared acts fill in any act name the narrative itself doesn't
		// define; narrative acts shadow shared acts of the same name.
		for actName, act := range multi.SharedActs {
			if _, exists := n.Acts[actName]; !exists {
				if n.Acts == nil {
					n.Acts = make(map[string]resource.Act)
				}
				n.Acts[actName] = act
			}
		}
		if err := n.Validate(); err != nil {
			return resource.NarrativeSource{}, errs.Wrap(errs.Configuration, err, "validate narrative "+name)
		}
		multi.Narratives[name] = n
	}

	if err := detectCycles(multi, executeName, nil); err != nil {
		return resource.NarrativeSource{}, err
	}

	target := multi.Narratives[executeName]
	if !hasComposition(target.Acts) {
		return resource.NewSingleSource(target), nil
	}
	return resource.NewMultiWithContextSource(multi, executeName), nil
}

// hasComposition reports whether any act in acts composes via narrative_ref.
func hasComposition(acts map[string]resource.Act) bool {
	for _, a := range acts {
		if a.IsComposition() {
			return true
		}
	}
	return false
}

// detectCycles walks the composition graph reachable from executeName via
// path-stack depth-first search, erroring on the first revisit.
func detectCycles(multi resource.MultiNarrative, name string, path []string) error {
	for _, p := range path {
		if p == name {
			return &resource.CyclicCompositionError{Path: append(append([]string{}, path...), name)}
		}
	}
	n, ok := multi.Narratives[name]
	if !ok {
		return &resource.NarrativeNotFoundError{Name: name}
	}
	path = append(path, name)
	for _, act := range n.Acts {
		if act.IsComposition() {
			if err := detectCycles(multi, act.NarrativeRef, path); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveShorthandInDoc walks every act (within "narratives" and
// "shared_acts") and replaces each string element of its "inputs" array
// that names a "<category>.<name>" reference with the resolved structured
// table, erroring if the reference is unresolvable. Plain strings that do
// not match a known category prefix are left as-is for the typed decode to
// treat as literal text inputs.
func resolveShorthandInDoc(raw map[string]any, bots, tables, media map[string]any) error {
	if narrs, ok := raw["narratives"].(map[string]any); ok {
		for _, v := range narrs {
			narr, ok := v.(map[string]any)
			if !ok {
				continue
			}
			if err := resolveShorthandInActs(narr["acts"], bots, tables, media); err != nil {
				return err
			}
		}
	}
	return resolveShorthandInActs(raw["shared_acts"], bots, tables, media)
}

func resolveShorthandInActs(actsVal any, bots, tables, media map[string]any) error {
	acts, ok := actsVal.(map[string]any)
	if !ok {
		return nil
	}
	for actName, v := range acts {
		act, ok := v.(map[string]any)
		if !ok {
			continue
		}
		inputsVal, ok := act["inputs"]
		if !ok {
			continue
		}
		inputs, ok := inputsVal.([]any)
		if !ok {
			continue
		}
		for i, el := range inputs {
			s, ok := el.(string)
			if !ok {
				continue
			}
			category, name, isRef := splitShorthand(s)
			if !isRef {
				inputs[i] = map[string]any{"kind": "text", "text": s}
				continue
			}
			resolved, err := resolveShorthand(category, name, bots, tables, media)
			if err != nil {
				return errs.Wrap(errs.Parse, err, "resolve input in act "+actName)
			}
			inputs[i] = resolved
		}
		act["inputs"] = inputs
	}
	return nil
}

// splitShorthand reports whether s has the form "<category>.<name>" for
// category in {bots, tables, media}.
func splitShorthand(s string) (category, name string, ok bool) {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return "", "", false
	}
	category, name = s[:dot], s[dot+1:]
	switch category {
	case "bots", "tables", "media":
		return category, name, name != ""
	default:
		return "", "", false
	}
}

func resolveShorthand(category, name string, bots, tables, media map[string]any) (map[string]any, error) {
	switch category {
	case "bots":
		v, ok := bots[name]
		if !ok {
			return nil, &resource.ReferenceNotFoundError{Category: "bots", Name: name}
		}
		return map[string]any{"kind": "bot_command", "bot_command": v}, nil
	case "tables":
		v, ok := tables[name]
		if !ok {
			return nil, &resource.ReferenceNotFoundError{Category: "tables", Name: name}
		}
		return map[string]any{"kind": "table", "table": v}, nil
	case "media":
		v, ok := media[name]
		if !ok {
			return nil, &resource.ReferenceNotFoundError{Category: "media", Name: name}
		}
		def, ok := v.(map[string]any)
		if !ok {
			return nil, &resource.ReferenceNotFoundError{Category: "media", Name: name}
		}
		out := make(map[string]any, len(def))
		for k, val := range def {
			out[k] = val
		}
		return out, nil
	default:
		return nil, errs.Newf(errs.Parse, "unknown shorthand category %q", category)
	}
}
