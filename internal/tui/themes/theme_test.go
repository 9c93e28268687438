package themes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByName(t *testing.T) {
	theme, ok := ByName("")
	assert.True(t, ok)
	assert.Equal(t, Default.Primary, theme.Primary)

	theme, ok = ByName("catppuccin-mocha")
	assert.True(t, ok)
	assert.Equal(t, CatppuccinMocha.Primary, theme.Primary)

	_, ok = ByName("solarized")
	assert.False(t, ok)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"catppuccin-mocha", "default"}, Names())
}
