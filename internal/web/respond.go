package web

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/vbonduro/shopexplore/internal/geo"
	"github.com/vbonduro/shopexplore/internal/service"
)

const maxBodySize = 10 << 20 // 10 MB

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type errorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Error("failed to encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		if _, err := io.WriteString(w, `{"error":"Internal server error"}`); err != nil {
			logger.Debug("failed to write response", "error", err)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.Debug("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, logger *slog.Logger) {
	writeJSON(w, status, errorResponse{Error: msg}, logger)
}

func writeFieldErrors(w http.ResponseWriter, fields map[string][]string, logger *slog.Logger) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields}, logger)
}

// writeServiceError maps service and geo sentinels to HTTP statuses. Anything
// unrecognized is logged and reported as a 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := s.log(r)
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Shop not found", logger)
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error(), logger)
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error(), logger)
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error(), logger)
	case errors.Is(err, geo.ErrInvalidCoordinate),
		errors.Is(err, service.ErrInvalidRadius),
		errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error(), logger)
	default:
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", logger)
	}
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes the 400 response itself and reports whether the caller may
// continue.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	logger := s.log(r)
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large", logger)
		return false
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body", logger)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", logger)
		return false
	}

	var verrs validator.ValidationErrors
	err = validate.Struct(dst)
	if errors.As(err, &verrs) {
		var fields map[string][]string
		for _, ferr := range verrs {
			addErr(&fields, fieldPath(ferr), fieldMessage(ferr))
		}
		writeFieldErrors(w, fields, logger)
		return false
	}
	if err != nil {
		logger.Error("validation setup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", logger)
		return false
	}
	return true
}

func addErr(errs *map[string][]string, name string, msgs ...string) {
	if *errs == nil {
		*errs = make(map[string][]string)
	}
	(*errs)[name] = append((*errs)[name], msgs...)
}

// fieldPath drops the top-level struct name, so "shopRequest.items[0].name"
// becomes "items[0].name".
func fieldPath(ferr validator.FieldError) string {
	ns := ferr.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ferr.Field()
}

func fieldMessage(ferr validator.FieldError) string {
	switch ferr.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "min":
		if ferr.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", ferr.Param())
		}
		return fmt.Sprintf("must be at least %s", ferr.Param())
	case "max":
		if ferr.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", ferr.Param())
		}
		return fmt.Sprintf("must be at most %s", ferr.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", ferr.Param())
	default:
		return fmt.Sprintf("failed %s validation", ferr.Tag())
	}
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
