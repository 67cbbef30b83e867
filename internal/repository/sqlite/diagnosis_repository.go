package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"plantdoc/internal/model"
)

// DiagnosisRepository implements repository.DiagnosisRepository for SQLite.
type DiagnosisRepository struct {
	db *DB
}

// NewDiagnosisRepository creates a new SQLite diagnosis repository.
func NewDiagnosisRepository(db *DB) *DiagnosisRepository {
	return &DiagnosisRepository{db: db}
}

const diagnosisColumns = `d.id, d.filename, d.original, d.source, d.status, d.found, d.timestamp, d.filepath, d.filesize`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDiagnosis(row rowScanner) (*model.DiagnosisRecord, error) {
	var rec model.DiagnosisRecord
	var found string
	if err := row.Scan(&rec.ID, &rec.Filename, &rec.Original, &rec.Source, &rec.Status, &found,
		&rec.Timestamp, &rec.FilePath, &rec.FileSize); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(found), &rec.Found); err != nil {
		return nil, fmt.Errorf("failed to decode found labels of %s: %w", rec.Filename, err)
	}
	if rec.Found == nil {
		rec.Found = []string{}
	}
	return &rec, nil
}

// Insert adds a new diagnosis record to the database.
func (r *DiagnosisRepository) Insert(rec *model.DiagnosisRecord) (int64, error) {
	found := rec.Found
	if found == nil {
		found = []string{}
	}
	encoded, err := json.Marshal(found)
	if err != nil {
		return 0, fmt.Errorf("failed to encode found labels: %w", err)
	}

	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO diagnoses (filename, original, source, status, found, timestamp, filepath, filesize)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Filename, rec.Original, rec.Source, rec.Status, string(encoded), rec.Timestamp, rec.FilePath, rec.FileSize)
	if err != nil {
		return 0, fmt.Errorf("failed to insert diagnosis: %w", err)
	}

	return result.LastInsertId()
}

// GetByID retrieves a diagnosis by its ID. A missing row yields nil, nil.
func (r *DiagnosisRepository) GetByID(id int64) (*model.DiagnosisRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rec, err := scanDiagnosis(r.db.Conn().QueryRow(`SELECT `+diagnosisColumns+` FROM diagnoses d WHERE d.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get diagnosis: %w", err)
	}
	return rec, nil
}

// GetByFilename retrieves a diagnosis by its stored file name. A missing row yields nil, nil.
func (r *DiagnosisRepository) GetByFilename(filename string) (*model.DiagnosisRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rec, err := scanDiagnosis(r.db.Conn().QueryRow(`SELECT `+diagnosisColumns+` FROM diagnoses d WHERE d.filename = ?`, filename))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get diagnosis: %w", err)
	}
	return rec, nil
}

// filterClause builds the WHERE part shared by GetAll and GetTotalCount.
func filterClause(filter *model.DiagnosisFilter) (string, []interface{}) {
	clause := " WHERE 1=1"
	args := []interface{}{}
	if filter == nil {
		return clause, args
	}

	if filter.Status != "" {
		clause += " AND d.status = ?"
		args = append(args, filter.Status)
	}

	if filter.Source != "" {
		clause += " AND d.source = ?"
		args = append(args, filter.Source)
	}

	if filter.Label != "" {
		clause += " AND EXISTS (SELECT 1 FROM detections x WHERE x.diagnosis_id = d.id AND x.label = ?)"
		args = append(args, filter.Label)
	}

	return clause, args
}

// GetAll retrieves diagnoses matching filter, newest first.
func (r *DiagnosisRepository) GetAll(filter *model.DiagnosisFilter) ([]model.DiagnosisRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)
	query := `SELECT ` + diagnosisColumns + ` FROM diagnoses d` + where + ` ORDER BY d.timestamp DESC, d.id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnoses: %w", err)
	}
	defer rows.Close()

	records := []model.DiagnosisRecord{}
	for rows.Next() {
		rec, err := scanDiagnosis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan diagnosis: %w", err)
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

// GetTotalCount returns the number of diagnoses matching filter, ignoring paging.
func (r *DiagnosisRepository) GetTotalCount(filter *model.DiagnosisFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM diagnoses d`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count diagnoses: %w", err)
	}

	return count, nil
}

// GetTotalSize returns the summed size of all stored result images.
func (r *DiagnosisRepository) GetTotalSize() (int64, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var size int64
	if err := r.db.Conn().QueryRow(`SELECT COALESCE(SUM(filesize), 0) FROM diagnoses`).Scan(&size); err != nil {
		return 0, fmt.Errorf("failed to sum file sizes: %w", err)
	}
	return size, nil
}

// DeleteByFilename removes a diagnosis and its detections. Unknown names are ignored.
func (r *DiagnosisRepository) DeleteByFilename(filename string) error {
	r.db.Lock()
	defer r.db.Unlock()

	var id int64
	err := r.db.Conn().QueryRow(`SELECT id FROM diagnoses WHERE filename = ?`, filename).Scan(&id)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get diagnosis id: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM detections WHERE diagnosis_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM diagnoses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete diagnosis: %w", err)
	}
	return nil
}

// DeleteAll removes all diagnoses and their detections.
func (r *DiagnosisRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections`); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM diagnoses`); err != nil {
		return fmt.Errorf("failed to delete diagnoses: %w", err)
	}

	return nil
}
