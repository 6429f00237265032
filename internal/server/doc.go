// Package server exposes sticker pack creation and management as a JSON HTTP
// API. Uploads land in the work directory, pack creation runs as a tracked
// background task, and an optional bearer token guards every route.
package server
