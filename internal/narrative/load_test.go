package narrative

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crumplecup/botticelli/internal/resource"
)

func TestLoadSingleNarrative(t *testing.T) {
	doc := []byte(`
[narration]
name = "greeting"
toc = ["hello"]

[narration.acts.hello]
model = "claude-3"

[[narration.acts.hello.inputs]]
kind = "text"
text = "say hi"
`)
	src, err := Load(doc, "")
	require.NoError(t, err)
	assert.Equal(t, resource.NarrativeSourceKindSingle, src.Kind)

	n, err := src.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "greeting", n.Name)
	assert.Equal(t, []string{"hello"}, n.TOC)
	require.Len(t, n.Acts["hello"].Inputs, 1)
	assert.Equal(t, "say hi", n.Acts["hello"].Inputs[0].Text)
}

func TestLoadSingleNarrativeTocRefersToUnknownAct(t *testing.T) {
	doc := []byte(`
[narration]
name = "broken"
toc = ["missing"]
`)
	_, err := Load(doc, "")
	require.Error(t, err)
	var tocErr *resource.TocRefersToUnknownActError
	assert.ErrorAs(t, err, &tocErr)
}

func TestLoadMultiResolvesShorthandAndPlainText(t *testing.T) {
	doc := []byte(`
[bots.greeter]
platform = "discord"
command = "hello"

[tables.posts]
name = "posts"

[narratives.main]
name = "main"
toc = ["intro"]

[narratives.main.acts.intro]
model = "claude-3"
inputs = ["bots.greeter", "tables.posts", "plain text input"]
`)
	src, err := Load(doc, "main")
	require.NoError(t, err)
	n, err := src.Resolve()
	require.NoError(t, err)

	inputs := n.Acts["intro"].Inputs
	require.Len(t, inputs, 3)
	assert.Equal(t, resource.InputKindBotCommand, inputs[0].Kind)
	assert.Equal(t, "hello", inputs[0].BotCommand.Command)
	assert.Equal(t, resource.InputKindTable, inputs[1].Kind)
	assert.Equal(t, "posts", inputs[1].Table.Name)
	assert.Equal(t, resource.InputKindText, inputs[2].Kind)
	assert.Equal(t, "plain text input", inputs[2].Text)
}

func TestLoadMultiUnresolvedShorthandIsParseError(t *testing.T) {
	doc := []byte(`
[narratives.main]
name = "main"
toc = ["intro"]

[narratives.main.acts.intro]
inputs = ["bots.nonexistent"]
`)
	_, err := Load(doc, "main")
	require.Error(t, err)
}

func TestLoadMultiSharedActsShadowedByNarrativeActs(t *testing.T) {
	doc := []byte(`
[shared_acts.intro]
model = "shared-model"

[[shared_acts.intro.inputs]]
kind = "text"
text = "shared"

[narratives.main]
name = "main"
toc = ["intro"]

[narratives.main.acts.intro]
model = "override-model"

[[narratives.main.acts.intro.inputs]]
kind = "text"
text = "overridden"
`)
	src, err := Load(doc, "main")
	require.NoError(t, err)
	n, err := src.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "override-model", n.Acts["intro"].Model)
}

func TestLoadMultiSharedActNotOverriddenIsInherited(t *testing.T) {
	doc := []byte(`
[shared_acts.outro]
model = "shared-model"

[[shared_acts.outro.inputs]]
kind = "text"
text = "bye"

[narratives.main]
name = "main"
toc = ["outro"]
`)
	src, err := Load(doc, "main")
	require.NoError(t, err)
	n, err := src.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "shared-model", n.Acts["outro"].Model)
}

func TestLoadMultiCompositionReturnsMultiWithContext(t *testing.T) {
	doc := []byte(`
[narratives.child]
name = "child"
toc = ["greet"]

[narratives.child.acts.greet]
model = "claude-3"

[[narratives.child.acts.greet.inputs]]
kind = "text"
text = "hi"

[narratives.parent]
name = "parent"
toc = ["delegate"]

[narratives.parent.acts.delegate]
narrative_ref = "child"
`)
	src, err := Load(doc, "parent")
	require.NoError(t, err)
	assert.Equal(t, resource.NarrativeSourceKindMultiWithContext, src.Kind)
}

func TestLoadMultiCyclicCompositionDetected(t *testing.T) {
	doc := []byte(`
[narratives.a]
name = "a"
toc = ["step"]

[narratives.a.acts.step]
narrative_ref = "b"

[narratives.b]
name = "b"
toc = ["step"]

[narratives.b.acts.step]
narrative_ref = "a"
`)
	_, err := Load(doc, "a")
	require.Error(t, err)
	var cycleErr *resource.CyclicCompositionError
	assert.ErrorAs(t, err, &cycleErr)
}

func TestLoadMultiRequiresExecuteName(t *testing.T) {
	doc := []byte(`
[narratives.main]
name = "main"
toc = []
`)
	_, err := Load(doc, "")
	require.Error(t, err)
}

func TestLoadMultiUnknownExecuteNameIsNarrativeNotFound(t *testing.T) {
	doc := []byte(`
[narratives.main]
name = "main"
toc = []
`)
	_, err := Load(doc, "missing")
	require.Error(t, err)
	var notFound *resource.NarrativeNotFoundError
	assert.ErrorAs(t, err, &notFound)
}
