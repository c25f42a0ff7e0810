package musescore

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
)

// styleVersion is the document version written into style files.
const styleVersion = "3.02"

// marginTags are the page margins overridden together by StyleOverrides.Margin.
var marginTags = []string{
	"pageEvenTopMargin",
	"pageEvenBottomMargin",
	"pageEvenLeftMargin",
	"pageOddTopMargin",
	"pageOddBottomMargin",
	"pageOddLeftMargin",
}

// StyleDocument builds a style file enabling multi-measure rests with the
// given threshold and width. Margin and spacing are only written when set.
func StyleDocument(style driven.StyleOverrides) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("museScore")
	root.CreateAttr("version", styleVersion)
	s := root.CreateElement("Style")

	s.CreateElement("createMultiMeasureRests").SetText("1")
	s.CreateElement("minEmptyMeasures").SetText(strconv.Itoa(style.MinEmptyMeasures))
	s.CreateElement("minMMRestWidth").SetText(formatFloat(style.MinMMRestWidth))

	if style.Margin > 0 {
		for _, tag := range marginTags {
			s.CreateElement(tag).SetText(formatFloat(style.Margin))
		}
	}
	if style.Spacing > 0 {
		s.CreateElement("spatium").SetText(formatFloat(style.Spacing))
	}

	doc.Indent(2)
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("write style document: %w", err)
	}
	return data, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
