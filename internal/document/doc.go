// Package document compiles text containing embedded commands into pages
// and renders them.
//
// Compile scans a document once, runs the prepare phase of every command
// occurrence and returns a Page of literal and prepared segments. A Page can
// be rendered any number of times, saved to disk and loaded again without
// re-parsing the source.
package document
