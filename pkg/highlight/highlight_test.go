package highlight

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const source = "[numthreads(64, 1, 1)]\nvoid Main(uint GroupIndex : SV_GroupIndex)\n{\n    float x = 1.0f; // one\n}\n"

func TestPlainWritesSourceUnchanged(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(DefaultStyle, false).Write(&buf, source))
	assert.Equal(t, source, buf.String())
}

func TestColorEmitsEscapes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New("no-such-style", true).Write(&buf, source))
	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "numthreads")
}

func TestStyles(t *testing.T) {
	assert.Contains(t, Styles(), DefaultStyle)
}
