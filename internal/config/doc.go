// Package config loads, normalizes, and validates stickerpack configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a .env file from the working directory,
// and honours environment fallbacks such as TELEGRAM_BOT_TOKEN and
// TELEGRAM_USER_ID. The Config type centralizes the conversion budgets, Bot API
// credentials, and server limits so every command discovers them in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
