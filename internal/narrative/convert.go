package narrative

import (
	"time"

	"github.com/crumplecup/botticelli/internal/resource"
)

func convertBotCommand(t tomlBotCommand) resource.BotCommand {
	bc := resource.BotCommand{
		Platform: t.Platform,
		Command:  t.Command,
		Args:     t.Args,
		Required: t.Required,
	}
	if t.CacheDuration != "" {
		if d, err := time.ParseDuration(t.CacheDuration); err == nil {
			bc.CacheDuration = &d
		}
	}
	return bc
}

func convertTable(t tomlTable) resource.Table {
	return resource.Table{
		Name:    t.Name,
		Columns: t.Columns,
		Where:   t.Where,
		Limit:   t.Limit,
		Offset:  t.Offset,
		OrderBy: t.OrderBy,
		Alias:   t.Alias,
		Format:  resource.TableFormat(t.Format),
		Sample:  t.Sample,
	}
}

func convertMediaSource(m tomlMediaDef) resource.MediaSource {
	switch {
	case m.URL != "":
		return resource.NewURLSource(m.URL)
	case m.File != "":
		return resource.NewFileSource(m.File)
	case m.Base64 != "":
		return resource.NewBase64Source(m.Base64)
	default:
		return resource.MediaSource{}
	}
}

func convertMediaDef(m tomlMediaDef) resource.MediaDef {
	return resource.MediaDef{
		Kind:     resource.InputKind(m.Kind),
		MIME:     m.Mime,
		Source:   convertMediaSource(m),
		Filename: m.Filename,
	}
}

func convertInput(t tomlInput) resource.Input {
	switch resource.InputKind(t.Kind) {
	case resource.InputKindImage, resource.InputKindAudio, resource.InputKindVideo, resource.InputKindDocument:
		src := convertMediaSource(tomlMediaDef{URL: t.URL, File: t.File, Base64: t.Base64})
		in := resource.Input{Kind: resource.InputKind(t.Kind), MIME: t.Mime, Source: src, Filename: t.Filename}
		return in
	case resource.InputKindBotCommand:
		if t.BotCommand == nil {
			return resource.Input{Kind: resource.InputKindBotCommand}
		}
		bc := convertBotCommand(*t.BotCommand)
		return resource.NewBotCommandInput(bc)
	case resource.InputKindTable:
		if t.Table == nil {
			return resource.Input{Kind: resource.InputKindTable}
		}
		return resource.NewTableInput(convertTable(*t.Table))
	default:
		return resource.NewTextInput(t.Text)
	}
}

func convertAct(t tomlAct) resource.Act {
	inputs := make([]resource.Input, len(t.Inputs))
	for i, in := range t.Inputs {
		inputs[i] = convertInput(in)
	}
	return resource.Act{
		Inputs:       inputs,
		Model:        t.Model,
		Temperature:  t.Temperature,
		MaxTokens:    t.MaxTokens,
		NarrativeRef: t.NarrativeRef,
	}
}

func convertActs(t map[string]tomlAct) map[string]resource.Act {
	out := make(map[string]resource.Act, len(t))
	for name, a := range t {
		out[name] = convertAct(a)
	}
	return out
}

func convertCarousel(t *tomlCarousel) *resource.CarouselConfig {
	if t == nil {
		return nil
	}
	return &resource.CarouselConfig{
		Iterations:       t.Iterations,
		BudgetMultiplier: t.BudgetMultiplier,
		StopOnFirstError: t.StopOnFirstError,
	}
}

func convertNarrative(t tomlNarrative) resource.Narrative {
	return resource.Narrative{
		Name:                  t.Name,
		Description:           t.Description,
		Template:              t.Template,
		Acts:                  convertActs(t.Acts),
		TOC:                   t.TOC,
		Carousel:              convertCarousel(t.Carousel),
		SkipContentGeneration: t.SkipContentGeneration,
	}
}

func convertResources(bots map[string]tomlBotCommand, tables map[string]tomlTable, media map[string]tomlMediaDef) resource.Resources {
	r := resource.Resources{
		Bots:   make(map[string]resource.BotCommand, len(bots)),
		Tables: make(map[string]resource.Table, len(tables)),
		Media:  make(map[string]resource.MediaDef, len(media)),
	}
	for name, b := range bots {
		r.Bots[name] = convertBotCommand(b)
	}
	for name, t := range tables {
		r.Tables[name] = convertTable(t)
	}
	for name, m := range media {
		r.Media[name] = convertMediaDef(m)
	}
	return r
}
