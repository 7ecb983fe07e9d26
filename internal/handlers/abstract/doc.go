// Package abstract provides the abstract command, which shortens its content
// to a number of characters.
package abstract
