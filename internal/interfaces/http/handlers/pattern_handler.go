package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/patentdesk/extraction-engine/internal/application/extraction"
)

// PatternHandler serves the pattern-engine API: correction intake,
// opportunity listing, synthesis, deploy, rollback, history, and runtime
// extraction.
type PatternHandler struct {
	svc extraction.Service
}

// NewPatternHandler creates a PatternHandler.
func NewPatternHandler(svc extraction.Service) *PatternHandler {
	return &PatternHandler{svc: svc}
}

// recordCorrectionRequest is the body of POST /corrections.
type recordCorrectionRequest struct {
	DocumentID     string `json:"document_id" binding:"required"`
	Field          string `json:"field" binding:"required"`
	CorrectedValue string `json:"corrected_value" binding:"required"`
	SourceText     string `json:"source_text"`
}

// RecordCorrection handles POST /api/v1/corrections.
func (h *PatternHandler) RecordCorrection(c *gin.Context) {
	var req recordCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	rec, err := h.svc.RecordCorrection(c.Request.Context(), &extraction.RecordCorrectionInput{
		DocumentID:     req.DocumentID,
		Field:          req.Field,
		CorrectedValue: req.CorrectedValue,
		SourceText:     req.SourceText,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, rec)
}

// ListOpportunities handles GET /api/v1/opportunities.
func (h *PatternHandler) ListOpportunities(c *gin.Context) {
	opportunities, err := h.svc.ListOpportunities(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, opportunities)
}

// Synthesize handles POST /api/v1/fields/:field/synthesize.
func (h *PatternHandler) Synthesize(c *gin.Context) {
	result, err := h.svc.SynthesizeAndValidate(c.Request.Context(), c.Param("field"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// deployRequest is the body of POST /patterns.
type deployRequest struct {
	Field               string   `json:"field" binding:"required"`
	Pattern             string   `json:"pattern" binding:"required"`
	Description         string   `json:"description"`
	Priority            int      `json:"priority"`
	SourceCorrectionIDs []string `json:"source_correction_ids"`
}

// Deploy handles POST /api/v1/patterns.
func (h *PatternHandler) Deploy(c *gin.Context) {
	var req deployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	deployed, err := h.svc.Deploy(c.Request.Context(), &extraction.DeployInput{
		Field:               req.Field,
		Pattern:             req.Pattern,
		Description:         req.Description,
		Priority:            req.Priority,
		SourceCorrectionIDs: req.SourceCorrectionIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, deployed)
}

// Rollback handles POST /api/v1/fields/:field/rollback.
func (h *PatternHandler) Rollback(c *gin.Context) {
	result, err := h.svc.Rollback(c.Request.Context(), c.Param("field"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// History handles GET /api/v1/fields/:field/patterns.
func (h *PatternHandler) History(c *gin.Context) {
	history, err := h.svc.History(c.Request.Context(), c.Param("field"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, history)
}

// extractRequest is the body of POST /extract.
type extractRequest struct {
	Field        string `json:"field" binding:"required"`
	DocumentText string `json:"document_text" binding:"required"`
}

// extractResponse always carries the match key so "no match" is an explicit
// null rather than an absent field.
type extractResponse struct {
	Match interface{} `json:"match"`
}

// Extract handles POST /api/v1/extract.  No rule matching is a 200 with a
// null match, not an error: the ingestion pipeline reads it as "route this
// document to human review".
func (h *PatternHandler) Extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	match, err := h.svc.Extract(c.Request.Context(), &extraction.ExtractInput{
		Field:        req.Field,
		DocumentText: req.DocumentText,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := extractResponse{}
	if match != nil {
		resp.Match = match
	}
	respond(c, http.StatusOK, resp)
}
