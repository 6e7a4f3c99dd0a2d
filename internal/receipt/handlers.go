package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// imageField is the multipart field carrying the receipt photo
const imageField = "image"

// maxFormMemory is the part of a multipart form kept in memory; the rest spills to disk
const maxFormMemory = 32 << 20

var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
}

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, code int, v any) {
	requests.WithLabelValues(strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes an {"error": message} response
func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{
		"error": message,
	})
}

// uploadContentType returns the declared part type, inferred from the extension when missing
func uploadContentType(declared, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(declared))
	if contentType == "" {
		if inferred, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
			return inferred
		}
	}
	return contentType
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleReceipt reads a receipt photo and returns its structured fields
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, "File is too large. Maximum size is "+strconv.FormatInt(s.maxUploadBytes>>20, 10)+"MB. Please compress or resize your image.", http.StatusBadRequest)
			return
		}
		writeError(w, "Error parsing form", http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.Warn("Error removing multipart files", "error", err)
		}
	}()

	f, header, err := r.FormFile(imageField)
	if err != nil {
		slog.Error("Error getting image from form", "error", err)
		errorMsg := "No image provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No image was selected. Please send the receipt photo in the \"image\" field."
		}
		writeError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading image data", "error", err, "filename", header.Filename)
		writeError(w, "Error reading file. Please try again.", http.StatusBadRequest)
		return
	}

	contentType := uploadContentType(header.Header.Get("Content-Type"), header.Filename)

	receipt, err := s.service.ProcessReceipt(r.Context(), header.Filename, data, contentType)
	switch {
	case errors.Is(err, ErrUnsupportedType), errors.Is(err, ErrInvalidImage):
		slog.Warn("Rejected upload", "filename", header.Filename, "content_type", contentType, "error", err)
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		slog.Error("Error processing receipt", "filename", header.Filename, "error", err)
		writeError(w, "OCR failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	requestDuration.Observe(time.Since(start).Seconds())
	itemsExtracted.Observe(float64(len(receipt.Items)))
	writeJSON(w, http.StatusOK, receipt)
}
