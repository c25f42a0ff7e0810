package score

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// testPart describes one instrument entry of a generated fixture.
type testPart struct {
	name   string
	staves int
}

// buildScore renders MuseScore markup with the given instruments. Every staff
// gets one measure; staff 1 carries a tempo marking, a rehearsal mark and a
// line break so splitting has something to move and strip.
func buildScore(parts ...testPart) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<museScore version="3.02">
  <Score>
    <metaTag name="workTitle">Test Song</metaTag>
`)

	staffID := 1
	for _, p := range parts {
		b.WriteString("    <Part>\n")
		for s := 0; s < p.staves; s++ {
			fmt.Fprintf(&b, "      <Staff id=\"%d\">\n        <StaffType group=\"pitched\"/>\n      </Staff>\n", staffID+s)
		}
		fmt.Fprintf(&b, "      <trackName>%s</trackName>\n      <Instrument>\n        <longName>%s</longName>\n      </Instrument>\n    </Part>\n", p.name, p.name)
		staffID += p.staves
	}

	for id := 1; id < staffID; id++ {
		fmt.Fprintf(&b, "    <Staff id=\"%d\">\n", id)
		if id == 1 {
			b.WriteString(`      <VBox>
        <height>10</height>
        <Text>
          <style>Title</style>
          <text>Test Song</text>
        </Text>
      </VBox>
      <Measure>
        <voice>
          <Clef><concertClefType>G</concertClefType></Clef>
          <TimeSig><sigN>4</sigN><sigD>4</sigD></TimeSig>
          <Tempo><tempo>2</tempo><text>Allegro</text></Tempo>
          <RehearsalMark><text>A</text></RehearsalMark>
          <Rest><durationType>measure</durationType><duration>4/4</duration></Rest>
        </voice>
        <LayoutBreak><subtype>line</subtype></LayoutBreak>
      </Measure>
`)
		} else {
			b.WriteString(`      <Measure>
        <voice>
          <TimeSig><sigN>4</sigN><sigD>4</sigD></TimeSig>
          <Rest><durationType>measure</durationType><duration>4/4</duration></Rest>
        </voice>
      </Measure>
`)
		}
		b.WriteString("    </Staff>\n")
	}

	b.WriteString("  </Score>\n</museScore>\n")
	return b.String()
}

// withManualParts appends child scores to markup, each with the given number
// of part name tags.
func withManualParts(markup string, partNameTags ...int) string {
	var b strings.Builder
	for i, n := range partNameTags {
		b.WriteString("    <Score>\n")
		for j := 0; j < n; j++ {
			fmt.Fprintf(&b, "      <metaTag name=\"partName\">Part %d</metaTag>\n", i+1)
		}
		b.WriteString("    </Score>\n")
	}
	return strings.Replace(markup, "  </Score>\n</museScore>", b.String()+"  </Score>\n</museScore>", 1)
}

// withEditorQuirks adds constructs the notation editor writes that a generic
// XML writer would normalise: an empty element with an explicit end tag and
// literal quotes in text.
func withEditorQuirks(markup string) string {
	const quirks = "    <metaTag name=\"arranger\"></metaTag>\n    <metaTag name=\"lyricist\">Don't \"Stop\"</metaTag>\n"
	return strings.Replace(markup, "  <Score>\n", "  <Score>\n"+quirks, 1)
}

// zipEntries creates a compressed container holding the given files.
func zipEntries(t *testing.T, files map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func mustParse(t *testing.T, markup string) *Document {
	t.Helper()
	doc, err := Parse([]byte(markup))
	require.NoError(t, err)
	return doc
}

// staffIDs returns the ids of the top-level staves in document order.
func staffIDs(d *Document) []string {
	staves := d.score().SelectElements(tagStaff)
	ids := make([]string, len(staves))
	for i, staff := range staves {
		ids[i] = staff.SelectAttrValue("id", "")
	}
	return ids
}
