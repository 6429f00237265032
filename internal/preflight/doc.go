// Package preflight provides readiness checks for the directories, external
// binaries, and bot credentials the converter depends on.
//
// The CLI "stickerpack check" command renders every result; "serve" runs
// RunAll at startup and refuses to start when a directory check fails.
package preflight
