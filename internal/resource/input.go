package resource

import (
	"fmt"
	"time"
)

// MediaSourceKind discriminates the four ways binary/remote media may be
// referenced from a narrative document.
type MediaSourceKind string

const (
	MediaSourceKindURL    MediaSourceKind = "url"
	MediaSourceKindBinary MediaSourceKind = "binary"
	MediaSourceKindBase64 MediaSourceKind = "base64"
	MediaSourceKindFile   MediaSourceKind = "file"
)

// MediaSource is a closed sum type: exactly one of Url/Binary/Base64/File is
// populated, selected by Kind.
type MediaSource struct {
	Kind   MediaSourceKind
	URL    string
	Binary []byte
	B64    string
	File   string
}

func NewURLSource(url string) MediaSource     { return MediaSource{Kind: MediaSourceKindURL, URL: url} }
func NewBinarySource(b []byte) MediaSource    { return MediaSource{Kind: MediaSourceKindBinary, Binary: b} }
func NewBase64Source(s string) MediaSource    { return MediaSource{Kind: MediaSourceKindBase64, B64: s} }
func NewFileSource(path string) MediaSource   { return MediaSource{Kind: MediaSourceKindFile, File: path} }

// InputKind discriminates the Input sum type.
type InputKind string

const (
	InputKindText       InputKind = "text"
	InputKindImage      InputKind = "image"
	InputKindAudio      InputKind = "audio"
	InputKindVideo      InputKind = "video"
	InputKindDocument   InputKind = "document"
	InputKindBotCommand InputKind = "bot_command"
	InputKindTable      InputKind = "table"
)

// TableFormat selects how a Table input's rows are rendered into the
// generated request.
type TableFormat string

const (
	TableFormatMarkdown TableFormat = "markdown"
	TableFormatJSON     TableFormat = "json"
	TableFormatCSV      TableFormat = "csv"
	TableFormatTOML     TableFormat = "toml"
)

// BotCommand describes a platform command invocation embedded in a message.
type BotCommand struct {
	Platform      string
	Command       string
	Args          map[string]any
	Required      bool
	CacheDuration *time.Duration
}

// Table describes a reference to rows in a storage-backed table, rendered
// into the request in Format.
type Table struct {
	Name    string
	Columns []string
	Where   string
	Limit   *int
	Offset  *int
	OrderBy string
	Alias   string
	Format  TableFormat
	Sample  *int
}

// Input is one element of a Message's content. It is a closed sum type:
// callers switch on Kind rather than probe which field is non-zero.
type Input struct {
	Kind InputKind

	// Text holds the payload for InputKindText.
	Text string

	// MIME and Source apply to Image/Audio/Video/Document.
	MIME   string
	Source MediaSource
	// Filename applies only to InputKindDocument.
	Filename string

	BotCommand *BotCommand
	Table      *Table
}

func NewTextInput(text string) Input {
	return Input{Kind: InputKindText, Text: text}
}

func NewImageInput(mime string, src MediaSource) Input {
	return Input{Kind: InputKindImage, MIME: mime, Source: src}
}

func NewAudioInput(mime string, src MediaSource) Input {
	return Input{Kind: InputKindAudio, MIME: mime, Source: src}
}

func NewVideoInput(mime string, src MediaSource) Input {
	return Input{Kind: InputKindVideo, MIME: mime, Source: src}
}

func NewDocumentInput(mime, filename string, src MediaSource) Input {
	return Input{Kind: InputKindDocument, MIME: mime, Filename: filename, Source: src}
}

func NewBotCommandInput(cmd BotCommand) Input {
	return Input{Kind: InputKindBotCommand, BotCommand: &cmd}
}

func NewTableInput(t Table) Input {
	return Input{Kind: InputKindTable, Table: &t}
}

// Validate checks that an Input's required fields are present for its Kind.
func (i Input) Validate() error {
	switch i.Kind {
	case InputKindText:
		return nil
	case InputKindImage, InputKindAudio, InputKindVideo, InputKindDocument:
		if i.MIME == "" {
			return fmt.Errorf("resource: %s input requires a mime type", i.Kind)
		}
		if i.Source.Kind == "" {
			return fmt.Errorf("resource: %s input requires exactly one media source", i.Kind)
		}
		return nil
	case InputKindBotCommand:
		if i.BotCommand == nil || i.BotCommand.Command == "" {
			return fmt.Errorf("resource: bot_command input requires a command")
		}
		return nil
	case InputKindTable:
		if i.Table == nil || i.Table.Name == "" {
			return fmt.Errorf("resource: table input requires a name")
		}
		return nil
	default:
		return fmt.Errorf("resource: unknown input kind %q", i.Kind)
	}
}
