// Package analyzer classifies input media files.
//
// Still-image containers (GIF, PNG/APNG, WebP, JPEG) are read directly for
// dimensions and declared animation metadata. Video containers are probed with
// ffprobe; probe failures are recorded as warnings rather than errors. The
// recommended output kind is a pure function of the animation flag.
package analyzer
