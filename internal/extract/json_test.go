package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFencedBlock(t *testing.T) {
	got, err := JSON("Sure! ```json\n{\"k\":1}\n```\nok")
	require.NoError(t, err)
	assert.Equal(t, `{"k":1}`, got)
}

func TestJSONUntaggedFence(t *testing.T) {
	got, err := JSON("```\n{\"k\":1}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"k":1}`, got)
}

func TestJSONBalancedObjectWithEscapedQuote(t *testing.T) {
	got, err := JSON(`noise {"k":"}"} trailing`)
	require.NoError(t, err)
	assert.Equal(t, `{"k":"}"}`, got)
}

func TestJSONBalancedArrayFallback(t *testing.T) {
	got, err := JSON(`here is data: [1, 2, [3, 4]] done`)
	require.NoError(t, err)
	assert.Equal(t, `[1, 2, [3, 4]]`, got)
}

func TestJSONNestedObjects(t *testing.T) {
	got, err := JSON(`{"outer": {"inner": "}"}, "after": true}`)
	require.NoError(t, err)
	assert.Equal(t, `{"outer": {"inner": "}"}, "after": true}`, got)
}

func TestJSONNotFound(t *testing.T) {
	_, err := JSON("no json here at all, just prose.")
	require.Error(t, err)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "json", nf.Format)
}

func TestJSONNotFoundWindowTruncated(t *testing.T) {
	long := ""
	for i := 0; i < 200; i++ {
		long += "x"
	}
	_, err := JSON(long)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Len(t, []rune(nf.Window), 100)
}
