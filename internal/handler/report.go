package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/bakery-api/internal/dto"
	"github.com/flicky/bakery-api/internal/report"
	"github.com/flicky/bakery-api/internal/service"
)

type ReportHandler struct {
	reportService *service.ReportService
}

func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func bindRange(c *gin.Context) (dto.ReportRangeRequest, bool) {
	var req dto.ReportRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return req, false
	}
	return req, true
}

func (h *ReportHandler) Summary(c *gin.Context) {
	req, ok := bindRange(c)
	if !ok {
		return
	}
	resp, err := h.reportService.Summary(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportHandler) Sales(c *gin.Context) {
	req, ok := bindRange(c)
	if !ok {
		return
	}
	resp, err := h.reportService.Sales(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agrupar": req.Group, "ventas": resp})
}

func (h *ReportHandler) TopProducts(c *gin.Context) {
	req, ok := bindRange(c)
	if !ok {
		return
	}
	resp, err := h.reportService.TopProducts(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"productos": resp})
}

func (h *ReportHandler) TopCategories(c *gin.Context) {
	req, ok := bindRange(c)
	if !ok {
		return
	}
	resp, err := h.reportService.TopCategories(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categorias": resp})
}

// ExportSales renders into memory first so a failure still produces a JSON
// error instead of a truncated download.
func (h *ReportHandler) ExportSales(c *gin.Context) {
	req, ok := bindRange(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.reportService.ExportSales(c.Request.Context(), req, &buf); err != nil {
		writeError(c, err)
		return
	}

	filename := fmt.Sprintf("ventas_%s_%s.xlsx", req.From, req.To)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, report.XLSXContentType, buf.Bytes())
}
