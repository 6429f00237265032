// Command stickerpack converts images and videos into Telegram sticker packs
// and manages packs owned by the configured bot.
//
//	stickerpack make ./pics --name cats --emoji 😺
//	stickerpack pack show cats_by_mybot
//	stickerpack serve
package main
