package score

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// symbolText maps inline symbols that appear inside instrument names.
var symbolText = map[string]string{
	"accidentalFlat":    "♭",
	"accidentalSharp":   "♯",
	"accidentalNatural": "♮",
}

// instrumentName returns the display name of an instrument entry: the long
// name, then the track name, then a positional fallback.
func instrumentName(part *etree.Element, index int) string {
	if long := part.FindElement(tagInstrument + "/longName"); long != nil {
		if name := strings.TrimSpace(innerText(long)); name != "" {
			return name
		}
	}
	if track := part.SelectElement("trackName"); track != nil {
		if name := strings.TrimSpace(innerText(track)); name != "" {
			return name
		}
	}
	return fmt.Sprintf("Part %d", index+1)
}

// innerText concatenates the character data below el, rendering symbols.
func innerText(el *etree.Element) string {
	var b strings.Builder
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			b.WriteString(t.Data)
		case *etree.Element:
			if t.Tag == "sym" {
				b.WriteString(symbolText[t.Text()])
				continue
			}
			b.WriteString(innerText(t))
		}
	}
	return b.String()
}

// disambiguateNames numbers every occurrence of a name that appears more than
// once, in declaration order: Violin, Violin, Piano -> Violin 1, Violin 2, Piano.
// Names that already carry a number are not matched against bare ones.
func disambiguateNames(names []string) []string {
	appearances := make(map[string]int, len(names))
	for _, name := range names {
		appearances[name]++
	}

	seen := make(map[string]int, len(names))
	out := make([]string, len(names))
	for i, name := range names {
		if appearances[name] < 2 {
			out[i] = name
			continue
		}
		seen[name]++
		out[i] = fmt.Sprintf("%s %d", name, seen[name])
	}
	return out
}
