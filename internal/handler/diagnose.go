package handler

import (
	"io"
	"net/http"

	"plantdoc/internal/config"
	"plantdoc/internal/dto"
	"plantdoc/internal/logger"
	"plantdoc/internal/model"
	"plantdoc/internal/service"
)

// DiagnoseHandler handles POST /api/diagnose with a multipart "file" upload.
func DiagnoseHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadSize)
		if err := r.ParseMultipartForm(cfg.MaxUploadSize); err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid upload: "+err.Error())
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, "failed to read upload")
			return
		}

		result, err := manager.Diagnose(r.Context(), header.Filename, model.SourceUpload, data)
		if err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				logger.Error("Diagnosis of %s failed: %v", header.Filename, err)
			}
			writeError(w, logger, status, err.Error())
			return
		}

		writeJSON(w, logger, http.StatusOK, result)
	}
}

// ExamplesHandler lists the bundled example images.
func ExamplesHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := manager.Examples()
		if err != nil {
			logger.Error("Error listing examples: %v", err)
			writeError(w, logger, http.StatusInternalServerError, "unable to list examples")
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string][]string{"examples": names})
	}
}

// DiagnoseExampleHandler handles POST /api/examples/diagnose?name=.
func DiagnoseExampleHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		name := r.URL.Query().Get("name")
		result, err := manager.DiagnoseExample(r.Context(), name)
		if err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				logger.Error("Diagnosis of example %s failed: %v", name, err)
			}
			writeError(w, logger, status, err.Error())
			return
		}

		writeJSON(w, logger, http.StatusOK, result)
	}
}

// ClassesHandler returns the configured healthy and disease classes.
func ClassesHandler(cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, dto.ClassesData{
			Healthy:  cfg.HealthyClasses,
			Diseases: cfg.DiseaseClasses,
		})
	}
}

// HealthHandler reports that the server is up.
func HealthHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	}
}
