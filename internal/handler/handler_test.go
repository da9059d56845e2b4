package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/bakery-api/internal/invoice"
	"github.com/flicky/bakery-api/internal/middleware"
	"github.com/flicky/bakery-api/internal/model"
	"github.com/flicky/bakery-api/internal/repository"
	"github.com/flicky/bakery-api/internal/service"
	"github.com/flicky/bakery-api/internal/storage"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func token(t *testing.T, id uuid.UUID, kind, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": id.String(), "kind": kind, "role": role, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

type fakeOrderRepo struct {
	orders map[uuid.UUID]*model.Order
}

func (f *fakeOrderRepo) Create(context.Context, *model.Order) error { return nil }

func (f *fakeOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	return f.orders[id], nil
}

func (f *fakeOrderRepo) ListByUserID(context.Context, uuid.UUID) ([]model.Order, error) {
	return nil, nil
}

func (f *fakeOrderRepo) List(context.Context, repository.OrderFilter) ([]model.Order, int, error) {
	return nil, 0, nil
}

func (f *fakeOrderRepo) UpdateStatus(context.Context, uuid.UUID, model.OrderStatus, model.OrderStatus) error {
	return nil
}

func (f *fakeOrderRepo) Cancel(context.Context, uuid.UUID) error { return nil }

func (f *fakeOrderRepo) ListForReport(context.Context, time.Time, time.Time) ([]model.Order, error) {
	return nil, nil
}

type panicRenderer struct{}

func (panicRenderer) Render(*invoice.Invoice) (invoice.Paths, error) {
	panic("render must not be reached")
}

func TestInvoiceHandler_FacturaWithDNIIsRejected(t *testing.T) {
	userID := uuid.New()
	order := &model.Order{
		ID: uuid.New(), UserID: userID, Status: model.OrderStatusPending,
		Lines: []model.OrderLine{{ProductName: "Pan", Quantity: 1, UnitPrice: decimal.NewFromInt(1), Subtotal: decimal.NewFromInt(1)}},
	}
	orders := &fakeOrderRepo{orders: map[uuid.UUID]*model.Order{order.ID: order}}
	ledger := invoice.NewLedger(filepath.Join(t.TempDir(), "comprobantes.json"))
	svc := service.NewInvoiceService(orders, nil, nil, panicRenderer{}, nil, ledger, invoice.Issuer{}, discardLogger())
	h := NewInvoiceHandler(svc)

	r := gin.New()
	r.POST("/invoices", middleware.UserAuth(testSecret, nil), h.Emit)

	body := `{"pedido_id":"` + order.ID.String() + `","comprobante_tipo":"factura","tipo_documento":"DNI","numero_documento":"12345678"}`
	req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token(t, userID, model.AccountKindUser, ""))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Para FACTURA, el documento debe ser RUC", errorBody(t, w))

	records, err := ledger.All()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestInvoiceHandler_OtherUsersOrderIsNotFound(t *testing.T) {
	order := &model.Order{ID: uuid.New(), UserID: uuid.New(), Status: model.OrderStatusPending}
	orders := &fakeOrderRepo{orders: map[uuid.UUID]*model.Order{order.ID: order}}
	svc := service.NewInvoiceService(orders, nil, nil, panicRenderer{}, nil, nil, invoice.Issuer{}, discardLogger())

	r := gin.New()
	r.POST("/invoices", middleware.UserAuth(testSecret, nil), NewInvoiceHandler(svc).Emit)

	body := `{"pedido_id":"` + order.ID.String() + `","comprobante_tipo":"boleta","tipo_documento":"DNI","numero_documento":"12345678"}`
	req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token(t, uuid.New(), model.AccountKindUser, ""))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Pedido no encontrado", errorBody(t, w))
}

type fakeCategoryRepo struct {
	categories map[uuid.UUID]*model.Category
}

func (f *fakeCategoryRepo) Create(context.Context, *model.Category) error { return nil }

func (f *fakeCategoryRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Category, error) {
	return f.categories[id], nil
}

func (f *fakeCategoryRepo) GetByName(context.Context, string) (*model.Category, error) {
	return nil, nil
}

func (f *fakeCategoryRepo) List(context.Context, bool) ([]model.Category, error) { return nil, nil }

func (f *fakeCategoryRepo) Update(context.Context, *model.Category) error { return nil }

func (f *fakeCategoryRepo) SetActive(context.Context, uuid.UUID, bool) error { return nil }

type fakeProductRepo struct {
	created []*model.Product
}

func (f *fakeProductRepo) Create(_ context.Context, p *model.Product) error {
	p.ID = uuid.New()
	f.created = append(f.created, p)
	return nil
}

func (f *fakeProductRepo) GetByID(context.Context, uuid.UUID) (*model.Product, error) {
	return nil, nil
}

func (f *fakeProductRepo) GetByName(context.Context, string) (*model.Product, error) {
	return nil, nil
}

func (f *fakeProductRepo) List(context.Context, repository.ProductFilter) ([]model.Product, int, error) {
	return nil, 0, nil
}

func (f *fakeProductRepo) Update(context.Context, *model.Product) error { return nil }

func (f *fakeProductRepo) SetActive(context.Context, uuid.UUID, bool) error { return nil }

func multipartProduct(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="imagen"; filename="pan.png"`)
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func newProductRouter(t *testing.T) (*gin.Engine, *fakeProductRepo, uuid.UUID, string) {
	t.Helper()
	uploadDir := t.TempDir()
	images := storage.NewLocalImageStore(uploadDir, 1<<20)
	cat := &model.Category{ID: uuid.New(), Name: "Panes", Active: true}
	products := &fakeProductRepo{}
	svc := service.NewProductService(products, &fakeCategoryRepo{categories: map[uuid.UUID]*model.Category{cat.ID: cat}}, nil, images, discardLogger())

	r := gin.New()
	r.POST("/admin/products", middleware.AdminAuth(testSecret, nil), NewProductHandler(svc, images).Create)
	return r, products, cat.ID, uploadDir
}

func postProduct(t *testing.T, r http.Handler, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartProduct(t, fields)
	req := httptest.NewRequest(http.MethodPost, "/admin/products", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token(t, uuid.New(), model.AccountKindAdmin, model.AdminRoleAdmin))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func uploadedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(dir, productImageKind))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestProductHandler_NegativePriceRemovesUpload(t *testing.T) {
	r, products, catID, uploadDir := newProductRouter(t)

	w := postProduct(t, r, map[string]string{
		"nombre": "Pan de yema", "precio": "-5", "stock": "10", "categoria_id": catID.String(),
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "El precio debe ser un número positivo", errorBody(t, w))
	assert.Empty(t, products.created)
	assert.Empty(t, uploadedFiles(t, uploadDir))
}

func TestProductHandler_CreateKeepsUpload(t *testing.T) {
	r, products, catID, uploadDir := newProductRouter(t)

	w := postProduct(t, r, map[string]string{
		"nombre": "Pan de yema", "precio": "1.20", "stock": "10", "categoria_id": catID.String(), "destacado": "true",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, products.created, 1)
	assert.True(t, strings.HasPrefix(products.created[0].Image, "/uploads/productos/"))
	assert.Len(t, uploadedFiles(t, uploadDir), 1)
}

func TestProductHandler_RequiresAdminToken(t *testing.T) {
	r, _, catID, _ := newProductRouter(t)
	body, contentType := multipartProduct(t, map[string]string{"nombre": "Pan", "precio": "1", "categoria_id": catID.String()})

	req := httptest.NewRequest(http.MethodPost, "/admin/products", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token(t, uuid.New(), model.AccountKindUser, ""))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{service.ErrEmailTaken, http.StatusBadRequest, "El email ya está registrado"},
		{service.ErrInvalidCredentials, http.StatusUnauthorized, "Credenciales inválidas"},
		{service.ErrInvalidTransition, http.StatusBadRequest, "Transición de estado no permitida"},
		{service.ErrInvoiceUpload, http.StatusInternalServerError, "Archivos generados pero no almacenados"},
		{storage.ErrFileNotAllowed, http.StatusBadRequest, "Solo se permiten imágenes JPG, PNG o WEBP"},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		writeError(c, tc.err)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		assert.Equal(t, tc.msg, errorBody(t, w))
	}
}

func TestCategoryHandler_HiddenCategoryIsNotFound(t *testing.T) {
	hidden := &model.Category{ID: uuid.New(), Name: "Galletas", Active: false}
	svc := service.NewCategoryService(&fakeCategoryRepo{categories: map[uuid.UUID]*model.Category{hidden.ID: hidden}}, nil, discardLogger())

	r := gin.New()
	r.GET("/categories/:id", NewCategoryHandler(svc, nil).Get)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/categories/"+hidden.ID.String(), nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Categoría no encontrada", errorBody(t, w))
}
