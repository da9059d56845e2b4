package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/bakery-api/internal/service"
	"github.com/flicky/bakery-api/internal/storage"
)

type errorMapping struct {
	target  error
	status  int
	message string
}

var errorMappings = []errorMapping{
	{service.ErrEmailTaken, http.StatusBadRequest, "El email ya está registrado"},
	{service.ErrAdminEmailTaken, http.StatusBadRequest, "El email ya está registrado"},
	{service.ErrWrongPassword, http.StatusBadRequest, "La contraseña actual es incorrecta"},
	{service.ErrInvalidTransition, http.StatusBadRequest, "Transición de estado no permitida"},
	{storage.ErrFileTooLarge, http.StatusBadRequest, "La imagen supera el tamaño máximo permitido"},
	{storage.ErrFileNotAllowed, http.StatusBadRequest, "Solo se permiten imágenes JPG, PNG o WEBP"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Credenciales inválidas"},
	{service.ErrAccountDisabled, http.StatusForbidden, "Cuenta desactivada"},
	{service.ErrUserNotFound, http.StatusNotFound, "Usuario no encontrado"},
	{service.ErrCategoryNotFound, http.StatusNotFound, "Categoría no encontrada"},
	{service.ErrProductNotFound, http.StatusNotFound, "Producto no encontrado"},
	{service.ErrOrderNotFound, http.StatusNotFound, "Pedido no encontrado"},
	{service.ErrInvoiceNotFound, http.StatusNotFound, "Comprobante no encontrado"},
	{service.ErrInvoiceRender, http.StatusInternalServerError, "No se pudo generar el comprobante"},
	{service.ErrInvoiceUpload, http.StatusInternalServerError, "Archivos generados pero no almacenados"},
}

// writeError maps service errors to a status and a {"error": msg} body.
// Unknown errors are attached to the context for the request logger.
func writeError(c *gin.Context, err error) {
	if msg, ok := service.IsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.status >= http.StatusInternalServerError {
				_ = c.Error(err)
			}
			c.JSON(m.status, gin.H{"error": m.message})
			return
		}
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID inválido"})
		return uuid.Nil, false
	}
	return id, true
}

// ImageSaver stores an uploaded image and returns its public path.
type ImageSaver interface {
	Save(fh *multipart.FileHeader, kind string) (string, error)
}

// saveImage stores the optional "imagen" field. A request without one yields
// an empty path.
func saveImage(c *gin.Context, images ImageSaver, kind string) (string, error) {
	fh, err := c.FormFile("imagen")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", err
	}
	return images.Save(fh, kind)
}
