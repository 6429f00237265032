// Package transcode produces sticker artifacts that fit size, dimension,
// duration, and frame-rate limits.
//
// Static assets are normalized to RGBA, scaled, and written as PNG; when the
// lossless file is over budget a lossy WebP quality ladder is searched through
// ffmpeg. Animated assets are encoded to VP9 WebM by searching an increasing
// CRF ladder. Each ladder attempt writes a temporary file that is removed as
// soon as it is evaluated.
package transcode
