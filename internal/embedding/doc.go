// Package embedding recognizes embedded commands in a document and renders
// them in two phases.
//
// A command occurs in one of two contexts that share the call-string syntax
// and differ only in delimiters:
//
//	%name?params(content)%   inline
//	#name?params(content)#   block
//
// Recognize runs once per document parse. It extracts the call string and
// content from a matched occurrence, parses the call, resolves the command
// and runs its prepare phase. The result is a Prepared value that hosts may
// cache or persist.
//
// Render runs on every output pass. It turns a Prepared value into text and
// writes it to the document sink. Failures never abort a document: they are
// substituted into the output as sentinels or as "##message##".
package embedding
