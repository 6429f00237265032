// Package tasks tracks background sticker pack jobs. A Store hands out
// identifiers, runs each job on its own goroutine, and exposes read-only
// snapshots for polling.
package tasks
