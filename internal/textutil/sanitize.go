package textutil

import (
	"path/filepath"
	"regexp"
	"strings"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

var (
	identifierInvalid    = regexp.MustCompile(`[^A-Za-z0-9_]`)
	repeatedUnderscores  = regexp.MustCompile(`_+`)
	uploadNameDisallowed = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// SanitizeUploadName reduces a client-supplied file name to its base name with
// only ASCII letters, digits, dots, dashes and underscores.
func SanitizeUploadName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = uploadNameDisallowed.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	if name == "" || name == "_" {
		return "upload"
	}
	return name
}

// SanitizeIdentifier keeps [A-Za-z0-9_], collapses runs of underscores, and
// trims underscores from both ends. The result may be empty.
func SanitizeIdentifier(value string) string {
	value = identifierInvalid.ReplaceAllString(value, "_")
	value = repeatedUnderscores.ReplaceAllString(value, "_")
	return strings.Trim(value, "_")
}
