// Package score loads, inspects, splits and serialises MuseScore notation documents.
//
// A Document wraps the markup tree of one score. Splitting never mutates the
// receiver: every derived part owns a private deep copy of the tree, pruned
// down to its own staves and renumbered so it reads as a standalone score.
//
// Supported inputs:
//   - .mscx: raw markup
//   - .mscz: compressed container holding exactly one .mscx entry
package score
