package domain

import "strings"

// DerivativeMarker tags generated files; it is the sole discriminator between
// generated output and user content and must not change between releases.
const DerivativeMarker = ".gen"

// DerivativeSuffix is the full suffix of every generated file name.
const DerivativeSuffix = DerivativeMarker + ".pdf"

// partSeparator joins the song name and the part name.
const partSeparator = " - "

// ScoreDerivativeName returns the name of the full-score derivative.
func ScoreDerivativeName(song string) string {
	return song + DerivativeSuffix
}

// PartDerivativeName returns the name of an instrument part derivative.
func PartDerivativeName(song, part string) string {
	return song + partSeparator + part + DerivativeSuffix
}

// PartPatternPrefix and PartPatternSuffix describe the per-part naming pattern
// handed to the renderer's batch mode: prefix + part name + suffix.
func PartPatternPrefix(song string) string {
	return song + partSeparator
}

// IsDerivativeName reports whether name carries the generated-file marker.
func IsDerivativeName(name string) bool {
	return strings.HasSuffix(name, DerivativeSuffix)
}

// BelongsToSong reports whether name is a derivative of the given song.
func BelongsToSong(song, name string) bool {
	if !IsDerivativeName(name) {
		return false
	}
	if name == ScoreDerivativeName(song) {
		return true
	}
	return strings.HasPrefix(name, PartPatternPrefix(song))
}

// OwningSong returns the longest of songs that name is a derivative of, or ""
// when none claims it. "Song - Live - Flute.gen.pdf" belongs to "Song - Live"
// rather than "Song" when both scores share a folder.
func OwningSong(songs []string, name string) string {
	owner := ""
	for _, song := range songs {
		if len(song) > len(owner) && BelongsToSong(song, name) {
			owner = song
		}
	}
	return owner
}
