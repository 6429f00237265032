package analyzer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	"golang.org/x/image/webp"
)

// defaultFrameDelayMS applies when an animation frame declares no delay.
const defaultFrameDelayMS = 100

type imageMeta struct {
	width        int
	height       int
	frames       int
	totalDelayMS int
}

var errTruncated = errors.New("truncated container")

func readImageMeta(path, ext string) (imageMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return imageMeta{}, err
	}
	switch ext {
	case ".gif":
		return gifMeta(data)
	case ".png":
		return pngMeta(data)
	case ".webp":
		return webpMeta(data)
	default:
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return imageMeta{}, err
		}
		return imageMeta{width: cfg.Width, height: cfg.Height, frames: 1}, nil
	}
}

func gifMeta(data []byte) (imageMeta, error) {
	anim, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return imageMeta{}, fmt.Errorf("decode gif: %w", err)
	}
	meta := imageMeta{width: anim.Config.Width, height: anim.Config.Height, frames: len(anim.Image)}
	if meta.width == 0 && len(anim.Image) > 0 {
		b := anim.Image[0].Bounds()
		meta.width, meta.height = b.Dx(), b.Dy()
	}
	for i := range anim.Image {
		delay := 0
		if i < len(anim.Delay) {
			delay = anim.Delay[i] * 10
		}
		if delay <= 0 {
			delay = defaultFrameDelayMS
		}
		meta.totalDelayMS += delay
	}
	return meta, nil
}

// pngMeta reads dimensions from IHDR and animation data from the APNG acTL and
// fcTL chunks.
func pngMeta(data []byte) (imageMeta, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return imageMeta{}, fmt.Errorf("decode png: %w", err)
	}
	meta := imageMeta{width: cfg.Width, height: cfg.Height, frames: 1}

	const sigLen = 8
	if len(data) < sigLen {
		return meta, errTruncated
	}
	declared := 0
	delays := 0
	frameControls := 0
	for off := sigLen; off+8 <= len(data); {
		length := int(binary.BigEndian.Uint32(data[off : off+4]))
		kind := string(data[off+4 : off+8])
		body := off + 8
		if length < 0 || body+length > len(data) {
			break
		}
		chunk := data[body : body+length]
		switch kind {
		case "acTL":
			if len(chunk) >= 4 {
				declared = int(binary.BigEndian.Uint32(chunk[0:4]))
			}
		case "fcTL":
			if len(chunk) >= 24 {
				frameControls++
				num := int(binary.BigEndian.Uint16(chunk[20:22]))
				den := int(binary.BigEndian.Uint16(chunk[22:24]))
				if den == 0 {
					den = 100
				}
				ms := num * 1000 / den
				if ms <= 0 {
					ms = defaultFrameDelayMS
				}
				delays += ms
			}
		case "IEND":
			off = len(data)
			continue
		}
		off = body + length + 4 // skip CRC
	}
	if declared > 1 {
		meta.frames = declared
		meta.totalDelayMS = delays
		if missing := declared - frameControls; missing > 0 {
			meta.totalDelayMS += missing * defaultFrameDelayMS
		}
	}
	return meta, nil
}

// webpMeta walks the RIFF chunks. Extended files carry the canvas size in VP8X
// and one ANMF chunk per frame, whose 24-bit duration sits at byte 12 of the
// frame header. Simple files fall back to x/image/webp for their size.
func webpMeta(data []byte) (imageMeta, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return imageMeta{}, errTruncated
	}
	meta := imageMeta{frames: 1}
	extended := false
	frames := 0
	for off := 12; off+8 <= len(data); {
		kind := string(data[off : off+4])
		length := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if length < 0 || body+length > len(data) {
			break
		}
		switch kind {
		case "VP8X":
			if length >= 10 {
				extended = true
				meta.width = 1 + uint24(data[body+4:body+7])
				meta.height = 1 + uint24(data[body+7:body+10])
			}
		case "ANMF":
			if length >= 16 {
				frames++
				ms := uint24(data[body+12 : body+15])
				if ms <= 0 {
					ms = defaultFrameDelayMS
				}
				meta.totalDelayMS += ms
			}
		}
		off = body + length + length%2
	}
	if frames > 0 {
		meta.frames = frames
	}
	if !extended {
		cfg, err := webp.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return imageMeta{}, fmt.Errorf("decode webp: %w", err)
		}
		meta.width, meta.height = cfg.Width, cfg.Height
	}
	return meta, nil
}

func uint24(b []byte) int {
	return int(b[0]) | int(b[1])<<8 | int(b[2])<<16
}
