// Package extension resolves command names to handler implementations.
//
// A Registry knows two kinds of handlers:
//
//   - Built-in handlers registered from Go with Register.
//   - Script handlers: a Lua file named "<command>.lua" in one of the
//     registry's search paths. The first path that contains the file wins.
//
// Resolution is memoized for the lifetime of the Registry. A name is looked
// up at most once; both positive and negative results are cached, and a
// script is loaded exactly once. Concurrent first-time resolutions of the
// same name share a single lookup.
//
// Dispatch targets are memoized per (command, operation) pair: the first
// Method call for a pair binds a function to the handle's implementation
// and every later call returns that same function.
//
// # Script handlers
//
//	-- ext/upper.lua
//	function prepare(embedding, params, index, content)
//	    if index.fail then
//	        return nil, "_UPPER_FAILED_"
//	    end
//	    return string.upper(content)
//	end
//
//	-- optional; defaults to returning the prepared value
//	function render(embedding, value)
//	    return value
//	end
//
// params is an array whose elements are strings (bare values) or
// {name, value} pairs (assignments); index maps keys to values.
// A second, non-empty string return value reports a named error.
package extension
