package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Pathoscore/config"
	"github.com/lshigami/Pathoscore/internal/controller"
	"github.com/lshigami/Pathoscore/internal/dto"
	"github.com/lshigami/Pathoscore/internal/inference"
	"github.com/lshigami/Pathoscore/internal/model"
	"github.com/lshigami/Pathoscore/internal/repository"
	"github.com/lshigami/Pathoscore/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixedScorer struct{}

func (fixedScorer) Score(ctx context.Context, img image.Image) (inference.Scores, error) {
	return inference.Scores{Architecture: 1, Atrophy: 1, Complexes: 1, Fibrosis: 1}, nil
}

func (fixedScorer) Ready() bool { return true }

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.ImageScore{}))

	svc := service.NewScoreService(repository.NewScoreRepository(db), fixedScorer{}, &config.Config{UploadDir: t.TempDir()})
	ctrl := controller.NewScoreController(svc, service.NewExportService(svc))

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/images", ctrl.UploadImage)
	api.PUT("/scores/:id", ctrl.UpdateScores)
	api.GET("/scores", ctrl.ListScores)
	api.GET("/scores/export", ctrl.ExportCSV)
	r.GET("/health", ctrl.Health)
	return r
}

func multipartTIFF(t *testing.T, filename string) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	var tiffBuf bytes.Buffer
	require.NoError(t, tiff.Encode(&tiffBuf, img, nil))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(tiffBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestUploadEndpoint(t *testing.T) {
	r := newRouter(t)

	body, contentType := multipartTIFF(t, "S-3602-10X_Image001_ch00.tif")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp dto.ScoreRecordDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "S-3602", resp.SampleID)
	assert.Equal(t, 4.0, resp.Scores["Total"])
}

func TestUploadRejectsNonTIFF(t *testing.T) {
	r := newRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "photo.jpg")
	require.NoError(t, err)
	part.Write([]byte("jpeg data"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Only .tif files supported")
}

func TestUpdateEndpoint(t *testing.T) {
	r := newRouter(t)

	body, contentType := multipartTIFF(t, "S-1-10X_Image001.tif")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var uploaded dto.ScoreRecordDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))

	payload := bytes.NewBufferString(`{"Fibrosis": 3.5}`)
	req = httptest.NewRequest(http.MethodPut, "/api/v1/scores/"+itoa(uploaded.DBID), payload)
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"updated"`)

	// Re-upload reflects the correction.
	body, contentType = multipartTIFF(t, "S-1-10X_Image001.tif")
	req = httptest.NewRequest(http.MethodPost, "/api/v1/images", body)
	req.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var again dto.ScoreRecordDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &again))
	assert.Equal(t, 6.5, again.Scores["Total"])
}

func TestUpdateUnknownRecord(t *testing.T) {
	r := newRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/scores/424242", bytes.NewBufferString(`{"Fibrosis": 2}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportEndpoint(t *testing.T) {
	r := newRouter(t)

	body, contentType := multipartTIFF(t, "S-7-10X_Image001.tif")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/scores/export", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Body.String(), "S-7-10X_Image001.tif")
}

func TestHealthEndpoint(t *testing.T) {
	r := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"model_loaded":true`)
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
