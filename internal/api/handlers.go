package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ksred/schema-registry/internal/aicompat"
	"github.com/ksred/schema-registry/internal/registry"
	"github.com/ksred/schema-registry/internal/utils"
)

// TableResponse describes one registered table
type TableResponse struct {
	Table           string            `json:"table"`
	Columns         []registry.Column `json:"columns"`
	PhysicalColumns []registry.Column `json:"physical_columns"`
	Timestamps      bool              `json:"timestamps"`
	DDL             string            `json:"ddl,omitempty"`
}

func (s *Server) tableResponse(def *registry.Definition) TableResponse {
	resp := TableResponse{
		Table:           def.Table,
		Columns:         def.Columns,
		PhysicalColumns: def.PhysicalColumns(),
		Timestamps:      def.Options.Timestamps,
	}
	if db := s.core.Registry.DB(); db != nil {
		resp.DDL = registry.CreateTableSQL(db, def)
	}
	return resp
}

func (s *Server) listSchemaHandler(c *gin.Context) {
	defs := s.core.Registry.Definitions()

	tables := make([]TableResponse, 0, len(defs))
	for _, def := range defs {
		tables = append(tables, s.tableResponse(def))
	}

	c.JSON(http.StatusOK, gin.H{
		"tables": tables,
		"count":  len(tables),
	})
}

func (s *Server) getSchemaHandler(c *gin.Context) {
	table := c.Param("table")

	def, ok := s.core.Registry.Lookup(table)
	if !ok {
		s.respondError(c, utils.WrapNotFoundError("table", table))
		return
	}

	c.JSON(http.StatusOK, s.tableResponse(def))
}

func (s *Server) migrationStatusHandler(c *gin.Context) {
	status, err := s.core.Runner.Status(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (s *Server) listAIModelsHandler(c *gin.Context) {
	list, err := s.core.AI.ListModels(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"models":     list,
		"capability": s.core.Capability,
	})
}

func (s *Server) getAIModelHandler(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		s.respondError(c, utils.InvalidFieldError("id", "must be a positive integer"))
		return
	}

	model, err := s.core.AI.GetModel(c.Request.Context(), uint(id))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model)
}

func (s *Server) recordAIUsageHandler(c *gin.Context) {
	var record aicompat.UsageRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		s.respondError(c, utils.WrapValidationError("body", err.Error()))
		return
	}

	if err := s.core.AI.RecordUsage(c.Request.Context(), record); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"recorded": false})
}

// respondError maps the typed errors to status codes
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case utils.IsValidationError(err):
		status = http.StatusBadRequest
	case utils.IsNotFoundError(err):
		status = http.StatusNotFound
	case utils.IsConflictError(err):
		status = http.StatusConflict
	case errors.Is(err, aicompat.ErrFeatureRetired):
		status = http.StatusGone
	}

	if status == http.StatusInternalServerError {
		utils.FromContext(c.Request.Context()).Error().
			Err(err).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
		c.Error(err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
