// Package narrative loads narrative documents: TOML text defining either a
// single narrative (a top-level "narration" table) or several narratives
// sharing root-level resources and acts (a top-level "narratives" mapping).
//
// Loading is two-pass: the document is first parsed into an untyped map so
// that "<category>.<name>" shorthand input references can be expanded
// against the document's root-level bots/tables/media, then the expanded
// map is re-encoded and decoded into the typed structs in this file.
package narrative

// tomlBotCommand mirrors resource.BotCommand for TOML (de)serialization.
type tomlBotCommand struct {
	Platform      string         `toml:"platform"`
	Command       string         `toml:"command"`
	Args          map[string]any `toml:"args,omitempty"`
	Required      bool           `toml:"required,omitempty"`
	CacheDuration string         `toml:"cache_duration,omitempty"`
}

// tomlTable mirrors resource.Table.
type tomlTable struct {
	Name    string   `toml:"name"`
	Columns []string `toml:"columns,omitempty"`
	Where   string   `toml:"where,omitempty"`
	Limit   *int     `toml:"limit,omitempty"`
	Offset  *int     `toml:"offset,omitempty"`
	OrderBy string   `toml:"order_by,omitempty"`
	Alias   string   `toml:"alias,omitempty"`
	Format  string   `toml:"format,omitempty"`
	Sample  *int     `toml:"sample,omitempty"`
}

// tomlMediaDef mirrors resource.MediaDef, flattened (kind + one of
// url/file/base64) rather than nested, so root-level media entries and
// resolved media Inputs share one shape.
type tomlMediaDef struct {
	Kind     string `toml:"kind"`
	Mime     string `toml:"mime,omitempty"`
	URL      string `toml:"url,omitempty"`
	File     string `toml:"file,omitempty"`
	Base64   string `toml:"base64,omitempty"`
	Filename string `toml:"filename,omitempty"`
}

// tomlInput mirrors resource.Input. Every field is optional except the ones
// implied by Kind; after shorthand resolution every element of an act's
// Inputs array has exactly this shape.
type tomlInput struct {
	Kind       string          `toml:"kind,omitempty"`
	Text       string          `toml:"text,omitempty"`
	Mime       string          `toml:"mime,omitempty"`
	URL        string          `toml:"url,omitempty"`
	File       string          `toml:"file,omitempty"`
	Base64     string          `toml:"base64,omitempty"`
	Filename   string          `toml:"filename,omitempty"`
	BotCommand *tomlBotCommand `toml:"bot_command,omitempty"`
	Table      *tomlTable      `toml:"table,omitempty"`
}

// tomlCarousel mirrors resource.CarouselConfig.
type tomlCarousel struct {
	Iterations       *uint32  `toml:"iterations,omitempty"`
	BudgetMultiplier *float32 `toml:"budget_multiplier,omitempty"`
	StopOnFirstError bool     `toml:"stop_on_first_error,omitempty"`
}

// tomlAct mirrors resource.Act.
type tomlAct struct {
	Model        string      `toml:"model,omitempty"`
	Temperature  *float64    `toml:"temperature,omitempty"`
	MaxTokens    *int        `toml:"max_tokens,omitempty"`
	NarrativeRef string      `toml:"narrative_ref,omitempty"`
	Inputs       []tomlInput `toml:"inputs,omitempty"`
}

// tomlNarrative mirrors resource.Narrative.
type tomlNarrative struct {
	Name                  string             `toml:"name,omitempty"`
	Description           string             `toml:"description,omitempty"`
	Template              string             `toml:"template,omitempty"`
	TOC                   []string           `toml:"toc,omitempty"`
	SkipContentGeneration bool               `toml:"skip_content_generation,omitempty"`
	Carousel              *tomlCarousel      `toml:"carousel,omitempty"`
	Acts                  map[string]tomlAct `toml:"acts,omitempty"`
}

// tomlSingleDoc is the shape of a document with a top-level "narration"
// table.
type tomlSingleDoc struct {
	Narration tomlNarrative `toml:"narration"`
}

// tomlMultiDoc is the shape of a document with a top-level "narratives"
// mapping.
type tomlMultiDoc struct {
	Narratives map[string]tomlNarrative `toml:"narratives"`
	SharedActs map[string]tomlAct       `toml:"shared_acts,omitempty"`
	Bots       map[string]tomlBotCommand `toml:"bots,omitempty"`
	Tables     map[string]tomlTable      `toml:"tables,omitempty"`
	Media      map[string]tomlMediaDef   `toml:"media,omitempty"`
}
