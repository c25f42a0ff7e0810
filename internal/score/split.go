package score

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

const (
	tagVBox       = "VBox"
	tagMeasure    = "Measure"
	tagLayoutBrk  = "LayoutBreak"
	tagText       = "Text"
	partNameStyle = "Instrument Name (Part)"

	// defaultVBoxHeight is used when the source has no title frame to copy.
	defaultVBoxHeight = "10"
)

// SplitToParts derives one document per instrument entry. A single-instrument
// score yields one unmodified copy. Scores that embed manual parts cannot be split.
func (d *Document) SplitToParts() ([]*Document, error) {
	manual, err := d.HasManualParts()
	if err != nil {
		return nil, err
	}
	if manual {
		return nil, domain.ErrManualParts
	}

	switch n := d.PartCount(); n {
	case 0:
		return nil, fmt.Errorf("%w: no %s entries", domain.ErrMalformedMarkup, tagPart)
	case 1:
		part := d.Copy()
		part.partName = d.PartName()
		return []*Document{part}, nil
	}

	src := d.score()
	var titleFrame *etree.Element
	if staff := src.FindElement(tagStaff + "[@id='1']"); staff != nil {
		titleFrame = staff.SelectElement(tagVBox)
	}
	annotations := collectGlobalAnnotations(src)
	names := disambiguateNames(d.PartNames())

	parts := make([]*Document, len(names))
	for i, name := range names {
		part, err := d.derivePart(i, name, titleFrame, annotations)
		if err != nil {
			return nil, fmt.Errorf("part %d (%s): %w", i+1, name, err)
		}
		parts[i] = part
	}
	return parts, nil
}

// derivePart builds the document for instrument index from a private copy of the tree.
func (d *Document) derivePart(index int, name string, titleFrame *etree.Element, annotations globalAnnotations) (*Document, error) {
	tree := d.tree.Copy()
	tree.WriteSettings.CanonicalText = true
	score := tree.Root().SelectElement(tagScore)

	retainPart(score, index)
	ownsFirstStaff := pruneStaves(score)
	removeLayoutBreaks(score)
	insertTitleFrame(score, titleFrame, name)
	if err := renumberStaves(score); err != nil {
		return nil, err
	}
	if !ownsFirstStaff {
		annotations.applyTo(score)
	}
	setMetaTag(score, metaPartName, name)

	return &Document{tree: tree, partName: name}, nil
}

func retainPart(score *etree.Element, index int) {
	for i, part := range score.SelectElements(tagPart) {
		if i != index {
			score.RemoveChild(part)
		}
	}
}

// pruneStaves removes staves the retained instrument does not reference along
// with the title frames of the kept ones. It reports whether the original
// first staff survived.
func pruneStaves(score *etree.Element) bool {
	referenced := make(map[string]bool)
	if part := score.SelectElement(tagPart); part != nil {
		for _, staff := range part.SelectElements(tagStaff) {
			referenced[staff.SelectAttrValue("id", "")] = true
		}
	}

	for _, staff := range score.SelectElements(tagStaff) {
		if !referenced[staff.SelectAttrValue("id", "")] {
			score.RemoveChild(staff)
			continue
		}
		for _, frame := range staff.SelectElements(tagVBox) {
			staff.RemoveChild(frame)
		}
	}
	return referenced["1"]
}

// removeLayoutBreaks drops line and page breaks so a part paginates on its own.
func removeLayoutBreaks(score *etree.Element) {
	for _, staff := range score.SelectElements(tagStaff) {
		for _, measure := range staff.SelectElements(tagMeasure) {
			for _, brk := range measure.SelectElements(tagLayoutBrk) {
				subtype := brk.SelectElement("subtype")
				if subtype == nil {
					continue
				}
				switch subtype.Text() {
				case "line", "page":
					measure.RemoveChild(brk)
				}
			}
		}
	}
}

// insertTitleFrame places a copy of the source title frame, extended with the
// part name, at the top of the first staff.
func insertTitleFrame(score *etree.Element, titleFrame *etree.Element, name string) {
	staff := score.SelectElement(tagStaff)
	if staff == nil {
		return
	}

	var frame *etree.Element
	if titleFrame != nil {
		frame = titleFrame.Copy()
	} else {
		frame = etree.NewElement(tagVBox)
		frame.CreateElement("height").SetText(defaultVBoxHeight)
	}

	text := frame.CreateElement(tagText)
	text.CreateElement("style").SetText(partNameStyle)
	text.CreateElement("text").SetText(name)

	staff.InsertChildAt(0, frame)
}

// renumberStaves assigns dense ids from 1 to the top-level staves and to the
// instrument's staff references in the same order.
func renumberStaves(score *etree.Element) error {
	staves := score.SelectElements(tagStaff)
	var refs []*etree.Element
	if part := score.SelectElement(tagPart); part != nil {
		refs = part.SelectElements(tagStaff)
	}
	if len(staves) != len(refs) {
		return fmt.Errorf("%d staves but %d instrument staff references: %w",
			len(staves), len(refs), domain.ErrStaffMismatch)
	}

	for i := range staves {
		id := strconv.Itoa(i + 1)
		staves[i].CreateAttr("id", id)
		refs[i].CreateAttr("id", id)
	}
	return nil
}

func setMetaTag(score *etree.Element, name, value string) {
	tag := score.FindElement(fmt.Sprintf("%s[@name='%s']", tagMetaTag, name))
	if tag == nil {
		tag = etree.NewElement(tagMetaTag)
		tag.CreateAttr("name", name)
		score.InsertChildAt(firstChildIndex(score, tagPart), tag)
	}
	tag.SetText(value)
}

// firstChildIndex returns the token index of the first child with tag, or the
// end of the element when there is none.
func firstChildIndex(el *etree.Element, tag string) int {
	if child := el.SelectElement(tag); child != nil {
		return child.Index()
	}
	return len(el.Child)
}
