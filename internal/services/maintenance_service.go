package services

import (
	"context"
	"fmt"

	"storefront/internal/docstore"
	"storefront/internal/domain"
	applog "storefront/internal/log"
)

type MaintenanceService struct {
	Carts docstore.CartStore
	Audit *AuditService
}

func NewMaintenanceService(carts docstore.CartStore, audit *AuditService) *MaintenanceService {
	return &MaintenanceService{Carts: carts, Audit: audit}
}

// PurgeEmptyCarts deletes every cart without lines.
func (s *MaintenanceService) PurgeEmptyCarts(ctx context.Context, actor *domain.User) (int64, error) {
	n, err := s.Carts.PurgeEmpty(ctx)
	if err != nil {
		return 0, err
	}
	s.Audit.Record(ctx, domain.ActionPurgeCarts, actorEmail(actor),
		fmt.Sprintf("Purged %d empty carts", n), map[string]any{"deleted": n})
	applog.Event(ctx, "info", "maintenance.purge_carts", nil, map[string]any{"deleted": n})
	return n, nil
}
