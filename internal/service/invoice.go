package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/flicky/bakery-api/internal/dto"
	"github.com/flicky/bakery-api/internal/invoice"
	"github.com/flicky/bakery-api/internal/lookup"
	"github.com/flicky/bakery-api/internal/model"
	"github.com/flicky/bakery-api/internal/repository"
	"github.com/flicky/bakery-api/internal/storage"
)

var (
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrInvoiceRender   = errors.New("invoice rendering failed")
	ErrInvoiceUpload   = errors.New("invoice files generated but not stored")
)

var (
	dniPattern = regexp.MustCompile(`^\d{8}$`)
	rucPattern = regexp.MustCompile(`^\d{11}$`)
)

const fallbackCustomerName = "Cliente"

// IdentityLookup resolves a DNI or RUC to the registered name and address.
type IdentityLookup interface {
	DNI(ctx context.Context, number string) (*lookup.Identity, error)
	RUC(ctx context.Context, number string) (*lookup.Identity, error)
}

type DocumentRenderer interface {
	Render(inv *invoice.Invoice) (invoice.Paths, error)
}

type InvoiceLedger interface {
	Append(rec invoice.Record) error
	All() ([]invoice.Record, error)
	ByUser(userID uuid.UUID) ([]invoice.Record, error)
	Find(series string, number int) (*invoice.Record, error)
}

type InvoiceService struct {
	orderRepo repository.OrderRepository
	userRepo  repository.UserRepository
	lookup    IdentityLookup
	renderer  DocumentRenderer
	uploader  storage.Uploader
	ledger    InvoiceLedger
	issuer    invoice.Issuer
	log       *slog.Logger
	now       func() time.Time
	number    func() int
}

func NewInvoiceService(
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	lookup IdentityLookup,
	renderer DocumentRenderer,
	uploader storage.Uploader,
	ledger InvoiceLedger,
	issuer invoice.Issuer,
	log *slog.Logger,
) *InvoiceService {
	return &InvoiceService{
		orderRepo: orderRepo,
		userRepo:  userRepo,
		lookup:    lookup,
		renderer:  renderer,
		uploader:  uploader,
		ledger:    ledger,
		issuer:    issuer,
		log:       log,
		now:       time.Now,
		number:    func() int { return 100000 + rand.Intn(900000) },
	}
}

// Emit issues a boleta or factura for one of the caller's orders. The order
// must exist and belong to userID, and the document data is validated before
// any lookup, rendering or upload happens.
func (s *InvoiceService) Emit(ctx context.Context, userID uuid.UUID, req dto.EmitInvoiceRequest) (*invoice.Record, error) {
	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}

	invoiceType := strings.ToLower(strings.TrimSpace(req.InvoiceType))
	docType := strings.ToUpper(strings.TrimSpace(req.DocumentType))
	docNumber := strings.TrimSpace(req.DocumentNumber)
	if err := validateDocument(invoiceType, docType, docNumber); err != nil {
		return nil, err
	}
	if order.Status == model.OrderStatusCancelled {
		return nil, invalid("No se puede emitir un comprobante para un pedido cancelado")
	}
	if len(order.Lines) == 0 {
		return nil, invalid("El pedido no tiene productos")
	}

	log := s.log.With("order_id", order.ID, "tipo", invoiceType)

	inv := &invoice.Invoice{
		Type:     invoiceType,
		Series:   invoice.SeriesFor(invoiceType),
		Number:   s.number(),
		IssuedAt: s.now(),
		OrderID:  order.ID,
		UserID:   userID,
		Currency: invoice.Currency,
		Issuer:   s.issuer,
		Customer: s.customer(ctx, log, userID, docType, docNumber),
		Lines:    invoiceLines(order.Lines),
	}
	inv.ComputeTotals()

	paths, err := s.renderer.Render(inv)
	if err != nil {
		log.Error("render invoice", "error", err, "code", inv.Code())
		return nil, fmt.Errorf("%w: %v", ErrInvoiceRender, err)
	}

	files, err := s.upload(ctx, inv.Code(), paths)
	if err != nil {
		log.Error("upload invoice files", "error", err, "code", inv.Code())
		return nil, fmt.Errorf("%w: %v", ErrInvoiceUpload, err)
	}

	for _, p := range paths.All() {
		if err := os.Remove(p); err != nil {
			log.Warn("remove temp invoice file", "error", err, "path", p)
		}
	}

	rec := invoice.Record{Invoice: *inv, Files: files}
	if err := s.ledger.Append(rec); err != nil {
		return nil, fmt.Errorf("append ledger: %w", err)
	}
	log.Info("invoice emitted", "code", inv.Code(), "verified", inv.Customer.Verified)
	return &rec, nil
}

func (s *InvoiceService) ListMine(ctx context.Context, userID uuid.UUID) ([]invoice.Record, error) {
	records, err := s.ledger.ByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return records, nil
}

func (s *InvoiceService) List(ctx context.Context) ([]invoice.Record, error) {
	records, err := s.ledger.All()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return records, nil
}

func (s *InvoiceService) Find(ctx context.Context, series string, number int) (*invoice.Record, error) {
	rec, err := s.ledger.Find(strings.ToUpper(series), number)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if rec == nil {
		return nil, ErrInvoiceNotFound
	}
	return rec, nil
}

func validateDocument(invoiceType, docType, docNumber string) error {
	switch invoiceType {
	case invoice.TypeBoleta, invoice.TypeFactura:
	default:
		return invalid("El tipo de comprobante debe ser BOLETA o FACTURA")
	}
	switch docType {
	case invoice.DocumentDNI, invoice.DocumentRUC:
	default:
		return invalid("El tipo de documento debe ser DNI o RUC")
	}

	if invoiceType == invoice.TypeFactura && docType != invoice.DocumentRUC {
		return invalid("Para FACTURA, el documento debe ser RUC")
	}
	if docType == invoice.DocumentDNI && !dniPattern.MatchString(docNumber) {
		return invalid("El DNI debe tener 8 dígitos")
	}
	if docType == invoice.DocumentRUC && !rucPattern.MatchString(docNumber) {
		return invalid("El RUC debe tener 11 dígitos")
	}
	return nil
}

// customer enriches the document holder from the registry. A failed lookup
// never blocks emission: the ordering user's name is printed instead and the
// customer is marked unverified.
func (s *InvoiceService) customer(ctx context.Context, log *slog.Logger, userID uuid.UUID, docType, docNumber string) invoice.Customer {
	c := invoice.Customer{DocumentType: docType, DocumentNumber: docNumber}

	var (
		id  *lookup.Identity
		err error
	)
	if docType == invoice.DocumentRUC {
		id, err = s.lookup.RUC(ctx, docNumber)
	} else {
		id, err = s.lookup.DNI(ctx, docNumber)
	}
	if err == nil && id != nil && id.Name != "" {
		c.Name = id.Name
		c.Address = id.Address
		c.Verified = true
		return c
	}
	log.Warn("identity lookup failed", "error", err, "documento", docType)

	c.Name = fallbackCustomerName
	if user, uerr := s.userRepo.GetByID(ctx, userID); uerr == nil && user != nil {
		c.Name = user.Name
		c.Address = user.Address
	}
	return c
}

func (s *InvoiceService) upload(ctx context.Context, code string, paths invoice.Paths) (invoice.Files, error) {
	var files invoice.Files
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		files.PDF, err = s.uploader.Upload(gctx, paths.PDF, code)
		return err
	})
	g.Go(func() (err error) {
		files.XML, err = s.uploader.Upload(gctx, paths.XML, code)
		return err
	})
	g.Go(func() (err error) {
		files.PNG, err = s.uploader.Upload(gctx, paths.PNG, code)
		return err
	})
	if err := g.Wait(); err != nil {
		return invoice.Files{}, err
	}
	return files, nil
}

func invoiceLines(lines []model.OrderLine) []invoice.Line {
	out := make([]invoice.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, invoice.Line{
			Description: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal,
		})
	}
	return out
}
