package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/bakery-api/internal/dto"
	"github.com/flicky/bakery-api/internal/service"
)

const productImageKind = "productos"

type ProductHandler struct {
	productService *service.ProductService
	images         ImageSaver
}

func NewProductHandler(productService *service.ProductService, images ImageSaver) *ProductHandler {
	return &ProductHandler{productService: productService, images: images}
}

func (h *ProductHandler) Create(c *gin.Context) {
	var form dto.ProductForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, err)
		return
	}
	image, err := saveImage(c, h.images, productImageKind)
	if err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.productService.Create(c.Request.Context(), form, image)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	resp, err := h.productService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) List(c *gin.Context) {
	h.list(c, false)
}

func (h *ProductHandler) AdminList(c *gin.Context) {
	h.list(c, true)
}

func (h *ProductHandler) list(c *gin.Context, includeInactive bool) {
	var req dto.ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.productService.List(c.Request.Context(), req, includeInactive)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) Featured(c *gin.Context) {
	resp, err := h.productService.Featured(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"productos": resp})
}

func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var form dto.ProductForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, err)
		return
	}
	image, err := saveImage(c, h.images, productImageKind)
	if err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.productService.Update(c.Request.Context(), id, form, image)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.productService.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
