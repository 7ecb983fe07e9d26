// Package callstring parses the call string of an embedded command.
//
// A call string is the command name plus its parameters, without the
// surrounding delimiters or content:
//
//	call  = name ('?' param ('&' param)*)?
//	name  = letter (letter | digit | '_')*
//	param = value | name '=' value?
//	value = (letter | digit | '_' | '.' | '-')+
//
// The grammar has no nesting, so it is parsed in a single left-to-right pass
// without backtracking.
//
// # Parameters
//
// Parse returns the parameters in two shapes that are built together and
// never change afterwards:
//
//   - An ordered list that keeps every parameter exactly as written.
//   - An index keyed by parameter name (assignments) or by the value itself
//     (bare values). Bare values and empty assignments map to "".
//     Later occurrences of a key overwrite earlier ones.
//
// For example "do?1.5&1.5&a&b=&c=2" produces the list
// [1.5 1.5 a b= c=2] and the index {"1.5": "", "a": "", "b": "", "c": "2"}.
package callstring
