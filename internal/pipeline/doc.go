// Package pipeline chains analysis, conversion, and upload for a batch of
// input files: every file is converted first, then the survivors are uploaded
// in one create call. Progress is reported as a 0-50% conversion phase
// followed by the upload.
package pipeline
