package fonts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBuiltinFonts(t *testing.T) {
	for _, name := range []string{"goregular", "embed:gobold", "GoMono.ttf"} {
		data, err := Load(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, data, name)
	}
	_, err := Load("embed:Inter-Regular")
	assert.Error(t, err)
}

func TestForStyle(t *testing.T) {
	assert.Equal(t, "gobolditalic", ForStyle("bold", true))
	assert.Equal(t, "gobold", ForStyle("SemiBold", false))
	assert.Equal(t, "goitalic", ForStyle("", true))
	assert.Equal(t, "gomedium", ForStyle("medium", false))
	assert.Equal(t, Default, ForStyle("", false))
	assert.Len(t, Names(), 6)
}
