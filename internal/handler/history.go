package handler

import (
	"net/http"
	"os"
	"strconv"

	"plantdoc/internal/dto"
	"plantdoc/internal/logger"
	"plantdoc/internal/model"
	"plantdoc/internal/repository"
	"plantdoc/internal/service/storage"
)

const (
	defaultPageSize = 24
	maxPageSize     = 200
)

// GetHistoryHandler returns a filtered, paginated list of past diagnoses.
func GetHistoryHandler(logger *logger.Logger, diagnosisRepo repository.DiagnosisRepository,
	detectionRepo repository.DetectionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), defaultPageSize)
		if limit > maxPageSize {
			limit = maxPageSize
		}

		filter := &model.DiagnosisFilter{
			Status: model.Status(q.Get("status")),
			Label:  q.Get("label"),
			Source: model.Source(q.Get("source")),
			Limit:  limit,
			Offset: (page - 1) * limit,
		}

		records, err := diagnosisRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying diagnoses from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := diagnosisRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting diagnoses: %v", err)
			totalCount = len(records)
		}

		totalSize, err := diagnosisRepo.GetTotalSize()
		if err != nil {
			logger.Error("Error getting results size: %v", err)
		}

		allLabels, err := detectionRepo.GetAllLabels()
		if err != nil {
			logger.Error("Error getting labels: %v", err)
			allLabels = []string{}
		}

		items := make([]dto.HistoryItem, 0, len(records))
		for _, rec := range records {
			labels := []string{}
			detections, err := detectionRepo.GetByDiagnosisID(rec.ID)
			if err != nil {
				logger.Error("Error getting detections for diagnosis %d: %v", rec.ID, err)
			}
			seen := make(map[string]bool)
			for _, det := range detections {
				if !seen[det.Label] {
					seen[det.Label] = true
					labels = append(labels, det.Label)
				}
			}

			items = append(items, dto.HistoryItem{
				Name:      rec.Filename,
				Original:  rec.Original,
				Source:    rec.Source,
				Status:    rec.Status,
				Found:     rec.Found,
				Labels:    labels,
				Date:      rec.Timestamp,
				TimeOfDay: rec.Timestamp,
			})
		}

		writeJSON(w, logger, http.StatusOK, dto.HistoryData{
			Items:       items,
			Labels:      allLabels,
			Size:        totalSize,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		})
	}
}

// ViewResultHandler serves a rendered result named by the "filename" query parameter.
func ViewResultHandler(store *storage.ResultStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, err := store.Path(r.URL.Query().Get("filename"))
		if err != nil {
			http.Error(w, "Valid filename parameter is required", http.StatusBadRequest)
			return
		}
		if _, err := os.Stat(path); err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, path)
	}
}

// DeleteResultHandler removes one result from disk and history.
func DeleteResultHandler(store *storage.ResultStore, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		filename := r.URL.Query().Get("filename")
		if _, err := store.Path(filename); err != nil {
			http.Error(w, "Valid filename parameter is required", http.StatusBadRequest)
			return
		}

		if err := store.Delete(filename); err != nil {
			logger.Error("Failed to delete %s: %v", filename, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "deleted", "filename": filename})
	}
}

// ClearHistoryHandler deletes every stored result.
func ClearHistoryHandler(store *storage.ResultStore, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		if err := store.Clear(); err != nil {
			logger.Error("Error clearing history: %v", err)
			http.Error(w, "Unable to clear history", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
