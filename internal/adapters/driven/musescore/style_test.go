package musescore

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
)

func parseStyle(t *testing.T, style driven.StyleOverrides) *etree.Element {
	t.Helper()
	data, err := StyleDocument(style)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(data))
	require.Equal(t, "museScore", doc.Root().Tag)
	s := doc.Root().SelectElement("Style")
	require.NotNil(t, s)
	return s
}

func TestStyleDocument(t *testing.T) {
	t.Run("multi-measure rests only", func(t *testing.T) {
		s := parseStyle(t, driven.StyleOverrides{MinEmptyMeasures: 2, MinMMRestWidth: 4})

		assert.Equal(t, "1", s.SelectElement("createMultiMeasureRests").Text())
		assert.Equal(t, "2", s.SelectElement("minEmptyMeasures").Text())
		assert.Equal(t, "4", s.SelectElement("minMMRestWidth").Text())
		assert.Nil(t, s.SelectElement("spatium"))
		assert.Nil(t, s.SelectElement("pageOddLeftMargin"))
	})

	t.Run("margin sets every page margin", func(t *testing.T) {
		s := parseStyle(t, driven.StyleOverrides{MinEmptyMeasures: 2, MinMMRestWidth: 4, Margin: 10.5})

		for _, tag := range marginTags {
			el := s.SelectElement(tag)
			require.NotNil(t, el, tag)
			assert.Equal(t, "10.5", el.Text())
		}
	})

	t.Run("spacing override", func(t *testing.T) {
		s := parseStyle(t, driven.StyleOverrides{Spacing: 1.76389})

		assert.Equal(t, "1.76389", s.SelectElement("spatium").Text())
	})
}
