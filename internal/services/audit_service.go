package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront/internal/docstore"
	"storefront/internal/domain"
	applog "storefront/internal/log"
)

// DefaultAuditLimit bounds the admin audit listing.
const DefaultAuditLimit = 100

type AuditService struct {
	Store docstore.AuditStore
	Now   func() time.Time
}

func NewAuditService(store docstore.AuditStore) *AuditService {
	return &AuditService{Store: store}
}

// Record appends one audit entry. It never fails the caller: write errors go
// to the log and are dropped.
func (s *AuditService) Record(ctx context.Context, action domain.Action, actor, detail string, extra map[string]any) {
	if s == nil || s.Store == nil {
		return
	}
	if actor == "" {
		actor = domain.AnonymousActor
	}
	rec := &domain.AuditRecord{
		Action: action,
		Actor:  actor,
		Detail: detail,
		At:     clock(s.Now).now(),
		Extra:  extra,
	}
	if err := s.Store.Append(ctx, rec); err != nil {
		applog.Event(ctx, "error", "audit.record.fail", err, map[string]any{
			"action": string(action),
			"actor":  actor,
		})
	}
}

type AuditOverview struct {
	Records    []domain.AuditRecord `json:"records"`
	Total      int64                `json:"total"`
	TopActions []domain.ActionCount `json:"top_actions"`
	Actions    []domain.Action      `json:"actions"`
}

// Overview returns the newest matching records with their count, the most
// frequent actions and every action seen so far.
func (s *AuditService) Overview(ctx context.Context, f domain.AuditFilter, limit int) (*AuditOverview, error) {
	if limit <= 0 || limit > DefaultAuditLimit {
		limit = DefaultAuditLimit
	}
	out := &AuditOverview{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Records, err = s.Store.List(ctx, f, limit)
		return err
	})
	g.Go(func() (err error) {
		out.Total, err = s.Store.Count(ctx, f)
		return err
	})
	g.Go(func() (err error) {
		out.TopActions, err = s.Store.TopActions(ctx, f, 5)
		return err
	})
	g.Go(func() (err error) {
		out.Actions, err = s.Store.Actions(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
