package memstore

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/domain"
)

type sales struct{ d *db }

func (s *sales) LastInvoice(_ context.Context, pattern string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("memstore: invoice pattern: %w", err)
	}
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	last := ""
	for _, x := range s.d.sales {
		if re.MatchString(x.InvoiceNumber) && x.InvoiceNumber > last {
			last = x.InvoiceNumber
		}
	}
	return last, nil
}

func (s *sales) Insert(_ context.Context, sale *domain.Sale) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, x := range s.d.sales {
		if x.InvoiceNumber == sale.InvoiceNumber {
			return fmt.Errorf("memstore: insert sale %s: %w", sale.InvoiceNumber, domain.ErrDuplicateInvoice)
		}
	}
	if sale.ID.IsZero() {
		sale.ID = primitive.NewObjectID()
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = s.d.now().UTC()
	}
	s.d.sales = append(s.d.sales, cloneSale(*sale))
	return nil
}

func (s *sales) Get(_ context.Context, id primitive.ObjectID) (*domain.Sale, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, x := range s.d.sales {
		if x.ID == id {
			out := cloneSale(x)
			return &out, nil
		}
	}
	return nil, domain.NotFound("sale", id.Hex())
}

func (s *sales) ListByUser(_ context.Context, userID string) ([]domain.Sale, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	out := []domain.Sale{}
	for _, x := range s.d.sales {
		if x.UserID == userID {
			out = append(out, cloneSale(x))
		}
	}
	newestFirst(out)
	return out, nil
}

func (s *sales) UpdateStatus(_ context.Context, id primitive.ObjectID, status string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for i := range s.d.sales {
		if s.d.sales[i].ID == id {
			s.d.sales[i].Status = status
			return nil
		}
	}
	return domain.NotFound("sale", id.Hex())
}

func (s *sales) Count(context.Context) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	return int64(len(s.d.sales)), nil
}

func newestFirst(xs []domain.Sale) {
	sort.SliceStable(xs, func(i, j int) bool { return xs[i].CreatedAt.After(xs[j].CreatedAt) })
}

type audit struct{ d *db }

func (s *audit) Append(_ context.Context, rec *domain.AuditRecord) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	if rec.At.IsZero() {
		rec.At = s.d.now().UTC()
	}
	r := *rec
	r.Extra = cloneExtra(rec.Extra)
	s.d.audit = append(s.d.audit, r)
	return nil
}

func matchAudit(f domain.AuditFilter, r *domain.AuditRecord) bool {
	if f.Action != "" && r.Action != f.Action {
		return false
	}
	if f.Actor != "" && !strings.Contains(strings.ToLower(r.Actor), strings.ToLower(f.Actor)) {
		return false
	}
	if f.From != nil && r.At.Before(*f.From) {
		return false
	}
	if f.To != nil && r.At.After(*f.To) {
		return false
	}
	return true
}

func (s *audit) filtered(f domain.AuditFilter) []domain.AuditRecord {
	out := []domain.AuditRecord{}
	for i := range s.d.audit {
		if matchAudit(f, &s.d.audit[i]) {
			r := s.d.audit[i]
			r.Extra = cloneExtra(r.Extra)
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	return out
}

func (s *audit) List(_ context.Context, f domain.AuditFilter, limit int) ([]domain.AuditRecord, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	out := s.filtered(f)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *audit) Count(_ context.Context, f domain.AuditFilter) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	return int64(len(s.filtered(f))), nil
}

func (s *audit) TopActions(_ context.Context, f domain.AuditFilter, n int) ([]domain.ActionCount, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	counts := map[domain.Action]int{}
	for _, r := range s.filtered(f) {
		counts[r.Action]++
	}
	out := make([]domain.ActionCount, 0, len(counts))
	for a, c := range counts {
		out = append(out, domain.ActionCount{Action: a, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Action < out[j].Action
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *audit) Actions(context.Context) ([]domain.Action, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	seen := map[domain.Action]bool{}
	out := []domain.Action{}
	for _, r := range s.d.audit {
		if !seen[r.Action] {
			seen[r.Action] = true
			out = append(out, r.Action)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
