package ingest

import (
	"bufio"
	"errors"
	"io"
	"mime"

	"campus-desk-be/pkg/deskerr"

	"github.com/gabriel-vasile/mimetype"
)

const (
	pdfMediaType = "application/pdf"
	// MaxFileSize is the largest accepted upload, 100 MiB.
	MaxFileSize int64 = 100 << 20

	sniffLen = 3072
)

// validateUpload checks the declared type and size, then sniffs the first
// bytes. The returned reader replays the sniffed bytes.
func validateUpload(upload Upload) (io.Reader, error) {
	mediaType, _, err := mime.ParseMediaType(upload.ContentType)
	if err != nil || mediaType != pdfMediaType {
		return nil, deskerr.New(deskerr.CodeValidation, "Only PDF files are allowed.")
	}
	if upload.Size <= 0 {
		return nil, deskerr.New(deskerr.CodeValidation, "The file is empty.")
	}
	if upload.Size > MaxFileSize {
		return nil, deskerr.New(deskerr.CodeValidation, "File size must be less than 100MB.")
	}
	if upload.Content == nil {
		return nil, deskerr.New(deskerr.CodeValidation, "The file is empty.")
	}

	br := bufio.NewReaderSize(upload.Content, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, deskerr.Wrap(deskerr.CodeValidation, "The file could not be read.", err)
	}
	if !mimetype.Detect(head).Is(pdfMediaType) {
		return nil, deskerr.New(deskerr.CodeValidation, "The file content is not a PDF.")
	}
	return br, nil
}
