package http

import (
	"errors"
	"net/http"

	"spendlog/internal/log"
	"spendlog/internal/ocr"
	"spendlog/internal/receipt"
)

// multipart overhead allowed on top of the image itself
const uploadSlack = 1 << 20

// handleOCRExtract forwards the uploaded "file" to the OCR service and
// returns {"text": ...}.
func (s *Server) handleOCRExtract(w http.ResponseWriter, r *http.Request) {
	if s.ocr == nil || !s.ocr.Configured() {
		InternalServerError(ocr.ErrNoAPIKey.Error()).Write(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, receipt.MaxFileSize+uploadSlack)
	if err := r.ParseMultipartForm(receipt.MaxFileSize + uploadSlack); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			BadRequestError(receipt.ErrFileTooLarge.Error()).Write(w)
			return
		}
		BadRequestError("No file provided").Write(w)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil || header.Filename == "" {
		BadRequestError("No file provided").Write(w)
		return
	}
	defer file.Close()

	if err := receipt.ValidateFile(header.Filename, header.Size); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	logger := log.FromContext(r.Context()).WithComponent(log.ComponentOCR)
	text, err := s.ocr.ExtractText(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		logger.LogError(r.Context(), "OCR extraction failed", err, log.OpExtract,
			log.LogFields{log.FieldFileName: header.Filename})
		if errors.Is(err, ocr.ErrUpstream) {
			BadGatewayError(err.Error()).Write(w)
			return
		}
		InternalServerError(err.Error()).Write(w)
		return
	}

	logger.InfoContext(r.Context(), "Receipt text extracted",
		log.FieldFileName, header.Filename,
		"text_length", len(text))
	OK(map[string]string{"text": text}).Write(w)
}
