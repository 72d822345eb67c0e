package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appstereo "github.com/polymerlab/m2pcalc/internal/application/stereo"
	"github.com/polymerlab/m2pcalc/internal/infrastructure/monitoring/logging"
	stereotypes "github.com/polymerlab/m2pcalc/pkg/types/stereo"
)

// StereoHandler serves the stereo assignment endpoints.
type StereoHandler struct {
	service appstereo.Service
	logger  logging.Logger
}

// NewStereoHandler creates a new StereoHandler.
func NewStereoHandler(service appstereo.Service, logger logging.Logger) *StereoHandler {
	return &StereoHandler{service: service, logger: logger.Named("stereo_handler")}
}

// RegisterRoutes mounts the handler under rg.
func (h *StereoHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/stereo")
	g.POST("/assign", h.Assign)
	g.POST("/assign-vinyl", h.AssignVinyl)
	g.POST("/tacticity", h.Tacticity)
	g.POST("/batch", h.Batch)
}

// Assign handles POST /api/v1/stereo/assign.
func (h *StereoHandler) Assign(c *gin.Context) {
	var req stereotypes.AssignRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.service.Assign(c.Request.Context(), &req)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeSuccess(c, http.StatusOK, resp)
}

// AssignVinyl handles POST /api/v1/stereo/assign-vinyl.
func (h *StereoHandler) AssignVinyl(c *gin.Context) {
	var req stereotypes.AssignRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.service.AssignVinyl(c.Request.Context(), &req)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeSuccess(c, http.StatusOK, resp)
}

// Tacticity handles POST /api/v1/stereo/tacticity.
func (h *StereoHandler) Tacticity(c *gin.Context) {
	var req stereotypes.TacticityRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.service.GenerateTacticity(c.Request.Context(), &req)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeSuccess(c, http.StatusOK, resp)
}

// Batch handles POST /api/v1/stereo/batch.  Per-item failures are reported
// inside the result; only an invalid job fails the request.
func (h *StereoHandler) Batch(c *gin.Context) {
	var job stereotypes.BatchJob
	if !bindJSON(c, &job) {
		return
	}
	result, err := h.service.RunBatch(c.Request.Context(), &job)
	if err != nil {
		writeAppError(c, err)
		return
	}
	if result.Failed > 0 {
		h.logger.Warn("batch finished with failures",
			logging.String("job_id", result.JobID),
			logging.Int("failed", result.Failed),
			logging.Int("succeeded", result.Succeeded))
	}
	writeSuccess(c, http.StatusOK, result)
}
