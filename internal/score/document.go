package score

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

// Markup element names.
const (
	tagRoot       = "museScore"
	tagScore      = "Score"
	tagPart       = "Part"
	tagStaff      = "Staff"
	tagInstrument = "Instrument"
	tagMetaTag    = "metaTag"

	metaPartName = "partName"
)

// Document is an in-memory notation document.
type Document struct {
	tree *etree.Document

	// source holds the parsed markup while the tree is unmodified, so an
	// unsplit document serialises to exactly the bytes it was read from.
	source []byte

	// manualParts caches the result of HasManualParts once computed.
	manualParts *bool

	// partName is the display name assigned when the document was derived by a split.
	partName string
}

// Load reads a score from a .mscz container or a .mscx markup file.
func Load(path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != domain.ExtCompressedScore && ext != domain.ExtScoreMarkup {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrUnsupportedFormat)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read score: %w", err)
	}

	doc, err := LoadBytes(filepath.Base(path), data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// LoadBytes reads a score from content, using name's extension to pick the format.
func LoadBytes(name string, data []byte) (*Document, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case domain.ExtScoreMarkup:
		return Parse(data)
	case domain.ExtCompressedScore:
		markup, err := extractMarkup(data)
		if err != nil {
			return nil, err
		}
		return Parse(markup)
	default:
		return nil, domain.ErrUnsupportedFormat
	}
}

// extractMarkup returns the single markup entry of a compressed container.
func extractMarkup(data []byte) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open container: %v", domain.ErrMalformedMarkup, err)
	}

	var entry *zip.File
	for _, file := range reader.File {
		if !strings.EqualFold(filepath.Ext(file.Name), domain.ExtScoreMarkup) {
			continue
		}
		if entry != nil {
			return nil, fmt.Errorf("%w: %s and %s", domain.ErrAmbiguousMarkup, entry.Name, file.Name)
		}
		entry = file
	}
	if entry == nil {
		return nil, domain.ErrMissingMarkup
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrMalformedMarkup, entry.Name, err)
	}
	defer rc.Close()

	markup, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrMalformedMarkup, entry.Name, err)
	}
	return markup, nil
}

// Parse builds a Document from raw markup.
func Parse(markup []byte) (*Document, error) {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(markup); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedMarkup, err)
	}

	root := tree.Root()
	if root == nil || root.Tag != tagRoot {
		return nil, fmt.Errorf("%w: missing %s root", domain.ErrMalformedMarkup, tagRoot)
	}
	if root.SelectElement(tagScore) == nil {
		return nil, fmt.Errorf("%w: missing %s element", domain.ErrMalformedMarkup, tagScore)
	}

	// Quotes in text stay literal, as the notation editor writes them.
	tree.WriteSettings.CanonicalText = true

	return &Document{tree: tree, source: bytes.Clone(markup)}, nil
}

// Serialize writes the tree back to markup. A document that was parsed and
// never changed yields its original bytes.
func (d *Document) Serialize() ([]byte, error) {
	if d.source != nil {
		return bytes.Clone(d.source), nil
	}
	data, err := d.tree.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialise score: %w", err)
	}
	return data, nil
}

// WriteFile serialises the document to a markup file at path.
func (d *Document) WriteFile(path string) error {
	data, err := d.Serialize()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Copy returns a deep copy that shares no nodes with d.
func (d *Document) Copy() *Document {
	c := &Document{
		tree:     d.tree.Copy(),
		source:   d.source,
		partName: d.partName,
	}
	if d.manualParts != nil {
		v := *d.manualParts
		c.manualParts = &v
	}
	return c
}

// HasManualParts reports whether the score embeds hand-authored parts.
// Every child score must carry exactly one part name tag; a child score
// without one is a consistency error.
func (d *Document) HasManualParts() (bool, error) {
	if d.manualParts != nil {
		return *d.manualParts, nil
	}

	children := d.score().SelectElements(tagScore)
	for i, child := range children {
		tags := child.FindElements(fmt.Sprintf("%s[@name='%s']", tagMetaTag, metaPartName))
		if len(tags) != 1 {
			return false, fmt.Errorf("child score %d has %d part name tags: %w",
				i, len(tags), domain.ErrManualPartsMetadata)
		}
	}

	has := len(children) > 0
	d.manualParts = &has
	return has, nil
}

// PartCount returns the number of instrument entries.
func (d *Document) PartCount() int {
	return len(d.score().SelectElements(tagPart))
}

// PartNames returns the display names of the instrument entries in declaration order.
func (d *Document) PartNames() []string {
	parts := d.score().SelectElements(tagPart)
	names := make([]string, len(parts))
	for i, part := range parts {
		names[i] = instrumentName(part, i)
	}
	return names
}

// PartName returns the display name of a derived part. A part read back from
// disk is named by its part name tag; otherwise the first instrument's name is used.
func (d *Document) PartName() string {
	if d.partName != "" {
		return d.partName
	}
	if name, ok := d.MetaTag(metaPartName); ok && name != "" {
		return name
	}
	if part := d.score().SelectElement(tagPart); part != nil {
		return instrumentName(part, 0)
	}
	return ""
}

// MetaTag returns the value of a score-level metadata tag.
func (d *Document) MetaTag(name string) (string, bool) {
	tag := d.score().FindElement(fmt.Sprintf("%s[@name='%s']", tagMetaTag, name))
	if tag == nil {
		return "", false
	}
	return tag.Text(), true
}

func (d *Document) score() *etree.Element {
	return d.tree.Root().SelectElement(tagScore)
}
