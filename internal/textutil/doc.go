// Package textutil provides string sanitizers for file names and Bot API
// identifiers.
package textutil
