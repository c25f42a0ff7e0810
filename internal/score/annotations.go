package score

import "github.com/beevik/etree"

// Annotations that are only legal on the first staff of a score.
var globalAnnotationTags = map[string]bool{
	"Tempo":         true,
	"RehearsalMark": true,
	"SystemText":    true,
}

// Elements that open a measure; annotations are inserted after them.
var measureStartTags = map[string]bool{
	"Clef":    true,
	"KeySig":  true,
	"TimeSig": true,
}

// globalAnnotations holds copies of first-staff annotations keyed by measure index.
type globalAnnotations map[int][]*etree.Element

// collectGlobalAnnotations copies the global annotations of staff 1.
func collectGlobalAnnotations(score *etree.Element) globalAnnotations {
	staff := score.FindElement(tagStaff + "[@id='1']")
	if staff == nil {
		return nil
	}

	annotations := make(globalAnnotations)
	for i, measure := range staff.SelectElements("Measure") {
		for _, el := range measureContent(measure).ChildElements() {
			if globalAnnotationTags[el.Tag] {
				annotations[i] = append(annotations[i], el.Copy())
			}
		}
	}
	return annotations
}

// applyTo inserts the annotations at the start of the matching measures of
// the score's first staff.
func (a globalAnnotations) applyTo(score *etree.Element) {
	if len(a) == 0 {
		return
	}
	staff := score.SelectElement(tagStaff)
	if staff == nil {
		return
	}

	measures := staff.SelectElements("Measure")
	for i, annotations := range a {
		if i >= len(measures) {
			continue
		}
		insertAtMeasureStart(measureContent(measures[i]), annotations)
	}
}

// measureContent returns the element holding a measure's events: the first
// voice when voices are present, otherwise the measure itself.
func measureContent(measure *etree.Element) *etree.Element {
	if voice := measure.SelectElement("voice"); voice != nil {
		return voice
	}
	return measure
}

func insertAtMeasureStart(container *etree.Element, annotations []*etree.Element) {
	pos := 0
	for _, el := range container.ChildElements() {
		if !measureStartTags[el.Tag] {
			break
		}
		pos = el.Index() + 1
	}

	for i, annotation := range annotations {
		container.InsertChildAt(pos+i, annotation.Copy())
	}
}
