package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appstereo "github.com/polymerlab/m2pcalc/internal/application/stereo"
	stereotypes "github.com/polymerlab/m2pcalc/pkg/types/stereo"
)

type MoleculeHandler struct {
	service appstereo.Service
}

func NewMoleculeHandler(service appstereo.Service) *MoleculeHandler {
	return &MoleculeHandler{service: service}
}

func (h *MoleculeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/molecules")
	g.POST("/centers", h.Centers)
	g.POST("/canonical", h.Canonical)
}

// Centers handles POST /api/v1/molecules/centers.
func (h *MoleculeHandler) Centers(c *gin.Context) {
	var req stereotypes.MoleculeRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.service.ChiralCenters(c.Request.Context(), &req)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeSuccess(c, http.StatusOK, resp)
}

// Canonical handles POST /api/v1/molecules/canonical.
func (h *MoleculeHandler) Canonical(c *gin.Context) {
	var req stereotypes.MoleculeRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.service.Canonical(c.Request.Context(), req.SMILES)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeSuccess(c, http.StatusOK, resp)
}
