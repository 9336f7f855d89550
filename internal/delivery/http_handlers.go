package delivery

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gaexport/internal/domain"
	"gaexport/internal/usecase"
	"gaexport/pkg/logger"
)

// handles HTTP requests
type HTTPHandlers struct {
	exportService *usecase.ExportService
	logger        *logger.Logger
}

// creates new HTTP handlers
func NewHTTPHandlers(exportService *usecase.ExportService, logger *logger.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		exportService: exportService,
		logger:        logger,
	}
}

// RunExport fetches the configured report and persists it. The JSON body is optional;
// any field it sets overrides the server defaults for this run. An output outside the
// configured allowlist is rejected with 400.
func (h *HTTPHandlers) RunExport(c *gin.Context) {
	requestID := c.GetString("request_id")
	ctx := c.Request.Context()

	var req usecase.RunRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      "Invalid request body",
				"message":    err.Error(),
				"request_id": requestID,
			})
			return
		}
	}

	h.logger.WithContext(ctx).Info("Starting export run")

	run, err := h.exportService.Run(ctx, req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidRunRequest) || errors.Is(err, domain.ErrUnsupportedDestination) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"error":      "Export run failed",
			"message":    err.Error(),
			"run":        run,
			"request_id": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Export completed successfully",
		"run":        run,
		"request_id": requestID,
	})
}

// ListExports returns recorded runs, newest first
func (h *HTTPHandlers) ListExports(c *gin.Context) {
	requestID := c.GetString("request_id")

	filter, err := parseRunFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Invalid parameters",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	list, err := h.exportService.ListRuns(c.Request.Context(), filter)
	if err != nil {
		h.logger.WithContext(c.Request.Context()).WithError(err).Error("Failed to list export runs")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Failed to retrieve export runs",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       list.Data,
		"total":      list.Total,
		"limit":      list.Limit,
		"offset":     list.Offset,
		"has_more":   list.HasMore,
		"request_id": requestID,
	})
}

func (h *HTTPHandlers) GetExport(c *gin.Context) {
	requestID := c.GetString("request_id")

	run, err := h.exportService.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":      "Export run not found",
				"message":    err.Error(),
				"request_id": requestID,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Failed to retrieve export run",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       run,
		"request_id": requestID,
	})
}

// GetAPIInfo returns API v1 information and available endpoints
func (h *HTTPHandlers) GetAPIInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"api_version": "v1",
		"service":     "GA Export Service",
		"version":     "1.0.0",
		"description": "Exports paginated Analytics Reporting API v4 reports as CSV",
		"endpoints": gin.H{
			"exports": gin.H{
				"run": gin.H{
					"path":        "/api/v1/exports/run",
					"method":      "POST",
					"description": "Fetch every page of the configured report and persist the merged table",
					"body": gin.H{
						"view_id":   "Optional: view to query (defaults to the report definition)",
						"page_size": "Optional: rows per page (default: 10000)",
						"output":    "Optional: destination under one of ALLOWED_OUTPUTS; defaults to OUTPUT",
					},
				},
				"list": gin.H{
					"path":   "/api/v1/exports",
					"method": "GET",
					"parameters": gin.H{
						"view_id": "Optional: filter by view",
						"status":  "Optional: running, succeeded or failed",
						"limit":   "Optional: Number of results (default: 100)",
						"offset":  "Optional: Pagination offset (default: 0)",
					},
				},
				"get": gin.H{
					"path":   "/api/v1/exports/:id",
					"method": "GET",
				},
			},
		},
		"request_id": c.GetString("request_id"),
	})
}

// HealthCheck returns the health status of the service
func (h *HTTPHandlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"service":    "gaexport",
		"version":    "1.0.0",
		"request_id": c.GetString("request_id"),
	})
}

func parseRunFilter(c *gin.Context) (domain.ExportRunFilter, error) {
	filter := domain.ExportRunFilter{
		ViewID: c.Query("view_id"),
		Status: domain.RunStatus(c.Query("status")),
	}

	switch filter.Status {
	case "", domain.RunStatusRunning, domain.RunStatusSucceeded, domain.RunStatusFailed:
	default:
		return filter, fmt.Errorf("unknown status %q", filter.Status)
	}

	var err error
	if s := c.Query("limit"); s != "" {
		if filter.Limit, err = strconv.Atoi(s); err != nil || filter.Limit < 0 {
			return filter, fmt.Errorf("limit must be a non-negative integer")
		}
	}
	if s := c.Query("offset"); s != "" {
		if filter.Offset, err = strconv.Atoi(s); err != nil || filter.Offset < 0 {
			return filter, fmt.Errorf("offset must be a non-negative integer")
		}
	}
	return filter, nil
}
