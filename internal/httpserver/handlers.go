package httpserver

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tinytelemetry/portal/internal/model"
)

func (s *Server) handleHealth(c *gin.Context) {
	widgets, dashboards, err := s.store.Counts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"uptime":     time.Since(s.startTime).String(),
		"widgets":    widgets,
		"dashboards": dashboards,
	})
}

func (s *Server) handleListWidgets(c *gin.Context) {
	widgets, err := s.store.GetWidgetsInfo(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ListEnvelope[model.WidgetDescriptor]{Data: widgets})
}

func (s *Server) handleGetWidget(c *gin.Context) {
	def, err := s.store.GetWidgetDefinition(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ItemEnvelope[model.WidgetDefinition]{Data: def})
}

func (s *Server) handleListDashboards(c *gin.Context) {
	dashboards, err := s.store.GetDashboardList(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ListEnvelope[model.DashboardDescriptor]{Data: dashboards})
}

func (s *Server) handleGetDashboard(c *gin.Context) {
	d, err := s.store.GetDashboard(c.Request.Context(), c.Param("url"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ItemEnvelope[model.DashboardDescriptor]{Data: d})
}

func (s *Server) handleCreateDashboard(c *gin.Context) {
	var req model.DashboardDescriptor
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	created, err := s.store.CreateDashboard(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, model.ItemEnvelope[model.DashboardDescriptor]{Data: created})
}

// writeError maps catalog sentinel errors onto HTTP status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("httpserver: %s %s [%s]: %v", c.Request.Method, c.FullPath(), c.GetString("request_id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
