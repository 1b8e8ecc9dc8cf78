package services

import (
	"context"
	"strings"

	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/clients/erpnext"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/domain/booking"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/pkg/logger"
)

// AddOnItemGroup is the dedicated item group for booking add-ons.
const AddOnItemGroup = "Booking Add-ons"

// CatalogService manages the service items that order lines reference.
type CatalogService interface {
	// EnsureItem returns the item code for the named add-on, creating the
	// catalog item when it does not exist yet. Idempotent by item name.
	EnsureItem(ctx context.Context, itemName string) (string, error)
}

type catalogService struct {
	store erpnext.Client
	log   *logger.Logger
}

func NewCatalogService(store erpnext.Client, baseLog *logger.Logger) CatalogService {
	return &catalogService{
		store: store,
		log:   baseLog.With("service", "CatalogService"),
	}
}

func (s *catalogService) EnsureItem(ctx context.Context, itemName string) (string, error) {
	const op = "Catalog.EnsureItem"
	itemName = strings.TrimSpace(itemName)
	if itemName == "" {
		return "", booking.NewError(booking.CodeValidation, op, "missing item name", nil)
	}

	existing, err := s.store.List(ctx, booking.DoctypeItem,
		erpnext.Filters{"item_name": itemName}, []string{"name", "item_name"})
	if err != nil {
		return "", storeErr(op, booking.DoctypeItem, itemName, err)
	}
	if len(existing) > 0 {
		return existing[0].Str("name"), nil
	}

	name, err := s.store.Create(ctx, booking.DoctypeItem, erpnext.Document{
		"item_code":     itemName,
		"item_name":     itemName,
		"item_group":    AddOnItemGroup,
		"stock_uom":     "Nos",
		"is_stock_item": 0,
		"is_sales_item": 1,
	})
	if err != nil {
		return "", storeErr(op, booking.DoctypeItem, itemName, err)
	}
	s.log.Info("created catalog item", "item", name)
	return name, nil
}
