package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedCatalog(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	services := c.Services()
	require.NotEmpty(t, services)

	assert.Contains(t, c.Prompt("hotel_booking"), "Hotel Booking")
	assert.Contains(t, c.Prompt("travel_planner"), "Travel Planning")
	assert.Contains(t, c.Prompt("daily_briefing"), "Daily Briefing")
}

func TestParse(t *testing.T) {
	t.Run("preserves file order", func(t *testing.T) {
		c, err := Parse([]byte(`
services:
  - id: b
    name: B
    prompt: prompt b
  - id: a
    name: A
    prompt: prompt a
`))
		require.NoError(t, err)

		services := c.Services()
		require.Len(t, services, 2)
		assert.Equal(t, "b", services[0].ID)
		assert.Equal(t, "a", services[1].ID)
	})

	t.Run("rejects entry without id", func(t *testing.T) {
		_, err := Parse([]byte(`
services:
  - name: Missing
    prompt: no id here
`))
		require.Error(t, err)
	})

	t.Run("rejects invalid yaml", func(t *testing.T) {
		_, err := Parse([]byte("services: [unclosed"))
		require.Error(t, err)
	})
}

func TestPromptUnknownService(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	assert.Empty(t, c.Prompt("does_not_exist"))
}
