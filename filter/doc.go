// Package filter compiles expression-based torrent filters.
//
// Expressions use expr-lang syntax over torrent fields plus a small set of
// helper functions:
//
//	filter.Compile(`Category == "audiobooks" && isComplete()`)
//	filter.Compile(`Ratio > 2.0 && daysSince(AddedOn) > 30`)
//	filter.Compile(`hasTag("mam") && contains(Name, "unabridged")`)
package filter
