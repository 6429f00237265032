// Package naming derives sticker set names that satisfy the Bot API rules:
// [A-Za-z0-9_] only, at most 64 characters, ending in _by_<bot>.
package naming
