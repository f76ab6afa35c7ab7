package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/vbonduro/shopexplore/internal/service"
)

const maxPosterSize = 10 << 20 // 10 MB

// allowedImageTypes is the set of MIME types accepted for uploaded posters.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniffing algorithm (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

func (s *Server) handleUploadPoster(w http.ResponseWriter, r *http.Request) {
	logger := s.log(r)
	shopID, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid shop id", logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPosterSize+1<<20)
	if err := r.ParseMultipartForm(maxPosterSize); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse form", logger)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file required", logger)
		return
	}
	defer closeWithLog(file, "upload file", logger)

	imageData, err := io.ReadAll(io.LimitReader(file, maxPosterSize+1))
	if err != nil {
		logger.Error("read upload failed", "shop_id", shopID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read file", logger)
		return
	}
	if len(imageData) > maxPosterSize {
		writeError(w, http.StatusRequestEntityTooLarge, "image too large", logger)
		return
	}

	mimeType, ok := allowedImageMIME(imageData)
	if !ok {
		writeError(w, http.StatusBadRequest, "unsupported image format", logger)
		return
	}

	actor, _ := userID(r.Context())
	shop, err := s.shops.SetPoster(r.Context(), actor, shopID, imageData, mimeType)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newShopResponse(shop), logger)
}

func (s *Server) handleGetPoster(w http.ResponseWriter, r *http.Request) {
	logger := s.log(r)
	shopID, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid shop id", logger)
		return
	}

	reader, mimeType, err := s.shops.Poster(r.Context(), shopID)
	if errors.Is(err, service.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Poster not found", logger)
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer closeWithLog(reader, "poster reader", logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "public, max-age=300")
	if _, err := io.Copy(w, reader); err != nil {
		logger.Error("write poster failed", "shop_id", shopID, "error", err)
	}
}
