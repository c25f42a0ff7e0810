package driven

import "context"

// StyleOverrides are the layout settings passed to the renderer for one conversion.
type StyleOverrides struct {
	// MinEmptyMeasures is the threshold for automatic multi-measure rests.
	MinEmptyMeasures int

	// MinMMRestWidth is the minimum width of a multi-measure rest, in spaces.
	MinMMRestWidth float64

	// Margin overrides the page margins when non-zero.
	Margin float64

	// Spacing overrides the global spacing when non-zero.
	Spacing float64
}

// Renderer converts notation documents to PDF through an external program.
type Renderer interface {
	// Convert renders input to output. A nil style renders with the document's own style.
	Convert(ctx context.Context, input, output string, style *StyleOverrides) error

	// ConvertWithParts renders a document that embeds manual parts: the full
	// score goes to mainOutput and every part to partPrefix + part name + partSuffix.
	ConvertWithParts(ctx context.Context, input, mainOutput, partPrefix, partSuffix string) error
}

// PageCounter reads the page count of a rendered PDF.
type PageCounter interface {
	PageCount(path string) (int, error)
}
