package sqlite

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"plantdoc/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newRecord(name string, status model.Status, ts time.Time, found ...string) *model.DiagnosisRecord {
	if found == nil {
		found = []string{}
	}
	return &model.DiagnosisRecord{
		Filename:  name,
		Original:  "leaf.jpg",
		Source:    model.SourceUpload,
		Status:    status,
		Found:     found,
		Timestamp: ts,
		FilePath:  "/tmp/" + name,
		FileSize:  100,
	}
}

func TestDiagnosisRepository_InsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDiagnosisRepository(db)

	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	id, err := repo.Insert(newRecord("a.jpg", model.StatusDiseased, ts, "Tomato leaf late blight"))
	require.NoError(t, err)
	assert.Positive(t, id)

	rec, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "a.jpg", rec.Filename)
	assert.Equal(t, model.StatusDiseased, rec.Status)
	assert.Equal(t, []string{"Tomato leaf late blight"}, rec.Found)
	assert.True(t, ts.Equal(rec.Timestamp))

	byName, err := repo.GetByFilename("a.jpg")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, id, byName.ID)

	missing, err := repo.GetByFilename("nope.jpg")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDiagnosisRepository_DuplicateFilename(t *testing.T) {
	repo := NewDiagnosisRepository(setupTestDB(t))

	_, err := repo.Insert(newRecord("a.jpg", model.StatusNone, time.Now()))
	require.NoError(t, err)

	_, err = repo.Insert(newRecord("a.jpg", model.StatusNone, time.Now()))
	assert.Error(t, err)
}

func TestDiagnosisRepository_FilterAndPaging(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDiagnosisRepository(db)
	dets := NewDetectionRepository(db)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		status := model.StatusHealthy
		label := "Tomato leaf"
		if i%2 == 0 {
			status = model.StatusDiseased
			label = "Tomato leaf mosaic virus"
		}
		id, err := repo.Insert(newRecord(fmt.Sprintf("%d.jpg", i), status, base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
		require.NoError(t, dets.InsertBatch(id, []model.Detection{{Label: label, Confidence: 0.9}}))
	}

	all, err := repo.GetAll(&model.DiagnosisFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "4.jpg", all[0].Filename, "newest first")

	diseased := &model.DiagnosisFilter{Status: model.StatusDiseased}
	count, err := repo.GetTotalCount(diseased)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	byLabel := &model.DiagnosisFilter{Label: "Tomato leaf"}
	count, err = repo.GetTotalCount(byLabel)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	page, err := repo.GetAll(&model.DiagnosisFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "2.jpg", page[0].Filename)
	assert.Equal(t, "1.jpg", page[1].Filename)

	size, err := repo.GetTotalSize()
	require.NoError(t, err)
	assert.Equal(t, int64(500), size)

	labels, err := dets.GetAllLabels()
	require.NoError(t, err)
	assert.Equal(t, []string{"Tomato leaf", "Tomato leaf mosaic virus"}, labels)
}

func TestDiagnosisRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDiagnosisRepository(db)
	dets := NewDetectionRepository(db)

	id, err := repo.Insert(newRecord("a.jpg", model.StatusHealthy, time.Now()))
	require.NoError(t, err)
	require.NoError(t, dets.InsertBatch(id, []model.Detection{{Label: "Apple leaf"}}))
	_, err = repo.Insert(newRecord("b.jpg", model.StatusHealthy, time.Now()))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByFilename("a.jpg"))
	require.NoError(t, repo.DeleteByFilename("unknown.jpg"))

	rec, err := repo.GetByFilename("a.jpg")
	require.NoError(t, err)
	assert.Nil(t, rec)

	left, err := dets.GetByDiagnosisID(id)
	require.NoError(t, err)
	assert.Empty(t, left)

	require.NoError(t, repo.DeleteAll())
	count, err := repo.GetTotalCount(nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDetectionRepository_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDiagnosisRepository(db)
	dets := NewDetectionRepository(db)

	id, err := repo.Insert(newRecord("a.jpg", model.StatusDiseased, time.Now()))
	require.NoError(t, err)

	in := []model.Detection{
		{Label: "Corn rust leaf", XMin: 0.1, YMin: 0.2, XMax: 0.3, YMax: 0.4, Confidence: 0.8},
		{Label: "Corn leaf blight", XMin: 0.5, YMin: 0.5, XMax: 0.9, YMax: 0.9, Confidence: 0.6},
	}
	require.NoError(t, dets.InsertBatch(id, in))
	require.NoError(t, dets.InsertBatch(id, nil))

	out, err := dets.GetByDiagnosisID(id)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, id, out[0].DiagnosisID)
	assert.Equal(t, "Corn rust leaf", out[0].Label)
	assert.InDelta(t, 0.4, out[0].YMax, 1e-9)
	assert.Equal(t, "Corn leaf blight", out[1].Label)
}
