package domain

// ChangeEvent is a typed entry from the remote change feed.
type ChangeEvent struct {
	// FileID identifies the changed file.
	FileID string

	// Removed is true when the file was deleted or access was lost.
	Removed bool
}

// ChangePage is one page of a change-feed response. Exactly one of
// NextPageToken and NewStartPageToken is set: a new start token means the
// feed is drained.
type ChangePage struct {
	Changes           []ChangeEvent
	NextPageToken     string
	NewStartPageToken string
}

// Drained reports whether this page ends the feed.
func (p ChangePage) Drained() bool {
	return p.NewStartPageToken != ""
}
