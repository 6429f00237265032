// Package uploader sequences Bot API primitives into pack operations:
// batch creation, adding stickers, cloning, analysis, backup, reordering and
// bulk emoji edits.
//
// Composite operations report expected failures (missing files, rejected
// items) in their result records. Only unexpected faults, such as an invalid
// bot token during construction, are returned as errors.
package uploader
