package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/bakery-api/internal/dto"
	"github.com/flicky/bakery-api/internal/service"
)

const categoryImageKind = "categorias"

type CategoryHandler struct {
	categoryService *service.CategoryService
	images          ImageSaver
}

func NewCategoryHandler(categoryService *service.CategoryService, images ImageSaver) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, images: images}
}

func (h *CategoryHandler) List(c *gin.Context) {
	h.list(c, false)
}

func (h *CategoryHandler) AdminList(c *gin.Context) {
	h.list(c, true)
}

func (h *CategoryHandler) list(c *gin.Context, includeInactive bool) {
	resp, err := h.categoryService.List(c.Request.Context(), includeInactive)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categorias": resp})
}

func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	resp, err := h.categoryService.Get(c.Request.Context(), id, false)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CategoryHandler) Create(c *gin.Context) {
	var form dto.CategoryForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, err)
		return
	}
	image, err := saveImage(c, h.images, categoryImageKind)
	if err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.categoryService.Create(c.Request.Context(), form, image)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var form dto.CategoryForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, err)
		return
	}
	image, err := saveImage(c, h.images, categoryImageKind)
	if err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.categoryService.Update(c.Request.Context(), id, form, image)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.categoryService.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
