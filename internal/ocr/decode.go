package ocr

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
)

var pdfMagic = []byte("%PDF")

// DecodePayload decodes a base64 upload, optionally wrapped in a data URL
// ("data:image/png;base64,..."), and identifies the document type.
func DecodePayload(payload string) (Document, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return Document{}, fmt.Errorf("%w: data URL without comma", ErrInvalidPayload)
		}
		payload = payload[comma+1:]
	}
	if payload == "" {
		return Document{}, fmt.Errorf("%w: empty file", ErrInvalidPayload)
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return Identify(data)
}

// decodeBase64 accepts padded and unpadded input.
func decodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	if raw, rerr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); rerr == nil {
		return raw, nil
	}
	return nil, err
}

// Identify sniffs data as a PDF or an image. Images must carry a valid
// header for one of the registered formats.
func Identify(data []byte) (Document, error) {
	if bytes.HasPrefix(data, pdfMagic) {
		return Document{Kind: KindPDF, Data: data}, nil
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrUnsupportedDocument, err)
	}
	return Document{Kind: Kind(format), Data: data, Width: cfg.Width, Height: cfg.Height}, nil
}
