package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"canalyzer/internal/auth"
	resp "canalyzer/internal/lib/api/response"
	sl "canalyzer/internal/lib/logger"
	"canalyzer/internal/vision"
)

// RequestTimeout bounds a single account operation, mail delivery included.
const RequestTimeout = 20 * time.Second

const (
	CodeRateLimited     = "RATE_LIMITED"
	CodeInvalidImage    = "INVALID_IMAGE"
	CodeAIUnavailable   = "AI_UNAVAILABLE"
	CodeAIRequestFailed = "AI_REQUEST_FAILED"
	CodeAIInvalidJSON   = "AI_INVALID_JSON"
)

const (
	MaxImageSize = 10 << 20

	multipartMemory = 1 << 20
)

var statusByCode = map[string]int{
	auth.CodeInvalidInput:       http.StatusBadRequest,
	auth.CodeEmailExists:        http.StatusConflict,
	auth.CodeAppBaseURLMissing:  http.StatusInternalServerError,
	auth.CodeMailFailed:         http.StatusBadGateway,
	auth.CodeInvalidToken:       http.StatusBadRequest,
	auth.CodeTokenExpired:       http.StatusBadRequest,
	auth.CodeInvalidCredentials: http.StatusUnauthorized,
	auth.CodeEmailNotVerified:   http.StatusForbidden,
	auth.CodeAuthRequired:       http.StatusUnauthorized,
	auth.CodeInternal:           http.StatusInternalServerError,
	CodeRateLimited:             http.StatusTooManyRequests,
	CodeInvalidImage:            http.StatusBadRequest,
	CodeAIUnavailable:           http.StatusServiceUnavailable,
	CodeAIRequestFailed:         http.StatusBadGateway,
	CodeAIInvalidJSON:           http.StatusBadGateway,
}

// Status is the HTTP status sent alongside an error code.
func Status(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}

	return http.StatusInternalServerError
}

// RenderError writes the error envelope for err as returned by auth.Auth.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := auth.Describe(err)
	resp.Render(w, r, Status(code), resp.Error(code, msg))
}

func RenderCode(w http.ResponseWriter, r *http.Request, code, msg string) {
	resp.Render(w, r, Status(code), resp.Error(code, msg))
}

// RenderVisionError maps a vision client failure onto the envelope.
func RenderVisionError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, vision.ErrUnsupportedImage):
		RenderCode(w, r, CodeInvalidImage, "Only JPG or PNG images are allowed.")
	case errors.Is(err, vision.ErrInvalidJSON):
		log.Warn("vision provider returned invalid json", sl.Err(err))
		RenderCode(w, r, CodeAIInvalidJSON, "The AI provider did not return valid JSON.")
	default:
		log.Error("vision provider request failed", sl.Err(err))
		RenderCode(w, r, CodeAIRequestFailed, "The request to the AI provider failed.")
	}
}

var (
	errImageMissing  = errors.New("image field is missing")
	errImageTooLarge = fmt.Errorf("image exceeds %d bytes", MaxImageSize)
)

// ReadImage pulls the "image" upload out of a multipart request. It fails
// on a missing file, an unsupported type or an oversized body.
func ReadImage(w http.ResponseWriter, r *http.Request) (vision.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxImageSize+multipartMemory)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return vision.Image{}, errImageTooLarge
		}

		return vision.Image{}, fmt.Errorf("%w: %w", errImageMissing, err)
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return vision.Image{}, errImageMissing
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !vision.IsSupportedType(contentType) {
		return vision.Image{}, vision.ErrUnsupportedImage
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxImageSize+1))
	if err != nil {
		return vision.Image{}, err
	}
	if len(data) > MaxImageSize {
		return vision.Image{}, errImageTooLarge
	}

	return vision.Image{ContentType: contentType, Data: data}, nil
}

// RenderImageError reports a ReadImage failure.
func RenderImageError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errImageTooLarge):
		RenderCode(w, r, CodeInvalidImage, "The image must be at most 10 MiB.")
	case errors.Is(err, vision.ErrUnsupportedImage):
		RenderCode(w, r, CodeInvalidImage, "Only JPG or PNG images are allowed.")
	default:
		RenderCode(w, r, CodeInvalidImage, "Upload a JPG or PNG file in the image field.")
	}
}
