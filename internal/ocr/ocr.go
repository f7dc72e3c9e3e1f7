// Package ocr decodes uploaded leave letters and turns them into text with
// an external OCR service.
package ocr

import (
	"context"
	"errors"
)

var (
	// ErrInvalidPayload indicates an upload that is not valid base64 or a
	// data URL.
	ErrInvalidPayload = errors.New("invalid file payload")

	// ErrUnsupportedDocument indicates decoded bytes that are neither a PDF
	// nor a supported image.
	ErrUnsupportedDocument = errors.New("unsupported document type")

	// ErrRecognitionFailed indicates the OCR service failed or was
	// unreachable.
	ErrRecognitionFailed = errors.New("text recognition failed")
)

// Kind is the detected document format.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindPNG  Kind = "png"
	KindJPEG Kind = "jpeg"
	KindGIF  Kind = "gif"
)

// ContentType returns the MIME type for k.
func (k Kind) ContentType() string {
	switch k {
	case KindPDF:
		return "application/pdf"
	case KindPNG:
		return "image/png"
	case KindJPEG:
		return "image/jpeg"
	case KindGIF:
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// Document is a decoded upload.
type Document struct {
	Kind Kind
	Data []byte
	// Width and Height are set for images only.
	Width, Height int
}

// Recognizer extracts text from a document. Pages are joined with
// newlines, and lines within a page likewise.
type Recognizer interface {
	Recognize(ctx context.Context, doc Document) (string, error)
}
