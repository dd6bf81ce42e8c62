package controller

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Pathoscore/internal/dto"
	"github.com/lshigami/Pathoscore/internal/service"
	"github.com/rs/zerolog/log"
)

type ScoreController struct {
	scoreService  service.ScoreService
	exportService service.ExportService
}

func NewScoreController(scores service.ScoreService, export service.ExportService) *ScoreController {
	return &ScoreController{
		scoreService:  scores,
		exportService: export,
	}
}

// UploadImage godoc
// @Summary Upload a whole-slide image for scoring
// @Description Upserts by filename: a known filename returns the stored record (with any corrections) without re-running inference; a new filename is decoded, scored and persisted.
// @Tags Scores
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "TIFF slide image"
// @Success 200 {object} dto.ScoreRecordDTO
// @Failure 400 {object} dto.ErrorResponse "Not a .tif/.tiff file"
// @Failure 500 {object} dto.ErrorResponse "Processing failed"
// @Failure 503 {object} dto.ErrorResponse "Model not loaded"
// @Router /images [post]
func (c *ScoreController) UploadImage(ctx *gin.Context) {
	header, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Expected a multipart 'file' field"})
		return
	}

	name := header.Filename
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, ".tif") && !strings.HasSuffix(lower, ".tiff") {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Only .tif files supported"})
		return
	}

	f, err := header.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Cannot read uploaded file"})
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Cannot read uploaded file"})
		return
	}

	record, err := c.scoreService.Upload(ctx.Request.Context(), name, content)
	if err != nil {
		c.respondUploadError(ctx, name, err)
		return
	}
	ctx.JSON(http.StatusOK, record)
}

// The client treats every server-side failure the same way, so decode,
// inference and store problems all surface as one opaque 500. They are
// logged distinctly for diagnosis.
func (c *ScoreController) respondUploadError(ctx *gin.Context, name string, err error) {
	var (
		decodeErr   *service.ErrDecode
		infErr      *service.ErrInference
		storeErr    *service.ErrStore
		unavailable *service.ErrModelUnavailable
	)
	switch {
	case errors.As(err, &unavailable):
		log.Warn().Str("filename", name).Msg("Upload rejected: model not loaded")
		ctx.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Message: "AI Model not loaded"})
	case errors.As(err, &decodeErr):
		log.Error().Err(err).Str("filename", name).Msg("Upload failed: image decode")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to process image"})
	case errors.As(err, &infErr):
		log.Error().Err(err).Str("filename", name).Msg("Upload failed: inference")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to process image"})
	case errors.As(err, &storeErr):
		log.Error().Err(err).Str("filename", name).Msg("Upload failed: store")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to process image"})
	default:
		log.Error().Err(err).Str("filename", name).Msg("Upload failed")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to process image"})
	}
}

// UpdateScores godoc
// @Summary Apply score corrections to a record
// @Description Partial update: only the submitted metrics change. The total is not recomputed server-side; clients derive it.
// @Tags Scores
// @Accept json
// @Produce json
// @Param id path int true "Record ID"
// @Param scores body dto.ScoreUpdateRequest true "Metric name to new value"
// @Success 200 {object} dto.ScoreUpdateAck
// @Failure 400 {object} dto.ErrorResponse "Unknown metric or bad body"
// @Failure 404 {object} dto.ErrorResponse "Record not found"
// @Failure 500 {object} dto.ErrorResponse "Store failure"
// @Router /scores/{id} [put]
func (c *ScoreController) UpdateScores(ctx *gin.Context) {
	idStr := ctx.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid record ID format"})
		return
	}

	var req dto.ScoreUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("UpdateScores: failed to bind JSON")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	if err := c.scoreService.UpdateScores(uint(id), req); err != nil {
		var (
			unknown  *service.ErrUnknownMetric
			notFound *service.ErrRecordNotFound
		)
		switch {
		case errors.As(err, &unknown):
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		case errors.As(err, &notFound):
			ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Record not found"})
		default:
			log.Error().Err(err).Uint64("id", id).Msg("UpdateScores: store failure")
			ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to save scores"})
		}
		return
	}
	ctx.JSON(http.StatusOK, dto.ScoreUpdateAck{Status: "updated"})
}

// ListScores godoc
// @Summary List the full scoring history
// @Tags Scores
// @Produce json
// @Success 200 {array} dto.ScoreRecordDTO
// @Failure 500 {object} dto.ErrorResponse
// @Router /scores [get]
func (c *ScoreController) ListScores(ctx *gin.Context) {
	records, err := c.scoreService.History()
	if err != nil {
		log.Error().Err(err).Msg("ListScores: store failure")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to load history"})
		return
	}

	out := make([]dto.ScoreRecordDTO, 0, len(records))
	for i := range records {
		item, err := dto.NewScoreRecordDTO(&records[i], "success")
		if err != nil {
			log.Error().Err(err).Msg("ListScores: mapping failure")
			ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to load history"})
			return
		}
		out = append(out, *item)
	}
	ctx.JSON(http.StatusOK, out)
}

// ExportCSV godoc
// @Summary Export the scoring history as CSV
// @Description Fixed column order: filename, serial number, the four metrics, total.
// @Tags Scores
// @Produce text/csv
// @Success 200 {string} string "CSV payload"
// @Failure 500 {object} dto.ErrorResponse
// @Router /scores/export [get]
func (c *ScoreController) ExportCSV(ctx *gin.Context) {
	ctx.Header("Content-Type", "text/csv")
	ctx.Header("Content-Disposition", `attachment; filename="scores.csv"`)
	if err := c.exportService.WriteCSV(ctx.Writer); err != nil {
		log.Error().Err(err).Msg("ExportCSV failed")
		ctx.Status(http.StatusInternalServerError)
	}
}

// Health godoc
// @Summary Service health and model readiness
// @Tags Health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Router /health [get]
func (c *ScoreController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.HealthResponse{
		Status:      "healthy",
		ModelLoaded: c.scoreService.ModelReady(),
	})
}
