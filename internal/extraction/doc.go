// Package extraction turns OCR text from a leave letter into a leave.Record.
//
// Field extraction is heuristic: the first matching pattern wins for the
// student name, roll number and date, and the reason is the block of lines
// that starts at the first line mentioning leave, absence or a request and
// ends at the sign-off.
//
// # Usage
//
//	ex, err := extraction.New(extraction.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	rec := ex.Extract(extraction.CleanText(ocrText))
//
// Processor chains payload decoding, OCR and extraction for a single upload.
//
// # Reason fallback
//
// When no reason block is found, or the block is shorter than
// MinReasonLength, the middle half of the text is used instead.
package extraction
