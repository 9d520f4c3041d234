package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/catalog"
	"github.com/storefront/backend/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/storefront/backend/internal/usecase"

// CatalogServiceConfig holds optional collaborators for the catalog service
type CatalogServiceConfig struct {
	Mapper *catalog.Mapper
	Now    func() time.Time
}

// CatalogService runs catalog load cycles against the POS.
// Every cycle ends Ready or Degraded; the caller never sees an error return.
type CatalogService struct {
	pos    domain.POSClient
	mapper *catalog.Mapper
	now    func() time.Time
	tracer trace.Tracer

	mu    sync.RWMutex
	state domain.LoadState
}

// NewCatalogService creates a new catalog service with dependencies
func NewCatalogService(posClient domain.POSClient, config CatalogServiceConfig) *CatalogService {
	mapper := config.Mapper
	if mapper == nil {
		mapper = catalog.DefaultMapper()
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &CatalogService{
		pos:    posClient,
		mapper: mapper,
		now:    now,
		tracer: otel.Tracer(tracerName),
		state:  domain.StateIdle,
	}
}

// State reports the step of the current or most recent cycle
func (s *CatalogService) State() domain.LoadState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *CatalogService) setState(state domain.LoadState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Load runs one cycle: authenticate, check the shift, then fetch inventory
// and products concurrently. Any failure yields the default catalog.
func (s *CatalogService) Load(ctx context.Context) (result *domain.CatalogResult) {
	cycleID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "catalog.Load",
		trace.WithAttributes(attribute.String("catalog.cycle_id", cycleID)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			result = s.degraded(cycleID, "load", fmt.Errorf("catalog load panicked: %v", r))
		}

		span.SetAttributes(
			attribute.String("catalog.state", string(result.State)),
			attribute.String("catalog.store_status", result.StoreStatus()),
		)
		if result.Err != nil {
			span.RecordError(result.Err)
			span.SetStatus(codes.Error, result.Error)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}()

	return s.load(ctx, cycleID)
}

func (s *CatalogService) load(ctx context.Context, cycleID string) *domain.CatalogResult {
	s.setState(domain.StateAuthenticating)
	if err := s.pos.Authenticate(ctx); err != nil {
		return s.degraded(cycleID, "authenticate", err)
	}

	s.setState(domain.StateCheckingShift)
	shift, err := s.pos.GetShiftStatus(ctx)
	if err != nil {
		return s.degraded(cycleID, "check shift", err)
	}

	s.setState(domain.StateLoadingCatalog)
	var (
		products  []domain.Product
		inventory []domain.InventoryItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(guarded("GetProducts", func() error {
		var err error
		products, err = s.pos.GetProducts(gctx)
		return err
	}))
	g.Go(guarded("GetInventory", func() error {
		var err error
		inventory, err = s.pos.GetInventory(gctx)
		return err
	}))
	if err := g.Wait(); err != nil {
		return s.degraded(cycleID, "load catalog", err)
	}

	isOpen := shift != nil && shift.IsOpen
	result := &domain.CatalogResult{
		CycleID:     cycleID,
		State:       domain.StateReady,
		Catalog:     s.mapper.Map(products, inventory),
		IsStoreOpen: &isOpen,
		LoadedAt:    s.now(),
	}
	s.setState(domain.StateReady)

	log.Printf("[Catalog] cycle %s ready: %d products, %d inventory items, store open=%t",
		cycleID, len(products), len(inventory), isOpen)

	return result
}

func (s *CatalogService) degraded(cycleID, step string, err error) *domain.CatalogResult {
	s.setState(domain.StateDegraded)
	log.Printf("[Catalog] cycle %s degraded at %s, serving defaults: %v", cycleID, step, err)

	return &domain.CatalogResult{
		CycleID:  cycleID,
		State:    domain.StateDegraded,
		Catalog:  catalog.Defaults(),
		LoadedAt: s.now(),
		Err:      err,
		Error:    err.Error(),
	}
}

// guarded turns a panic in a fetch goroutine into an error; a recover in
// the calling goroutine cannot see it.
func guarded(op string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Catalog] recovered from panic in %s: %v", op, r)
				err = fmt.Errorf("%s panicked: %v", op, r)
			}
		}()
		return fn()
	}
}
