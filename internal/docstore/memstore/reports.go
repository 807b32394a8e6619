package memstore

import (
	"context"
	"sort"
	"time"

	"storefront/internal/domain"
)

type reports struct{ d *db }

func (s *reports) matching(f domain.ReportFilter) []domain.Sale {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	out := []domain.Sale{}
	for i := range s.d.sales {
		if f.Match(&s.d.sales[i]) {
			out = append(out, cloneSale(s.d.sales[i]))
		}
	}
	return out
}

// itemCount is the number of lines on s.
func itemCount(s *domain.Sale) int { return len(s.Lines) }

func (s *reports) Sales(_ context.Context, f domain.ReportFilter) ([]domain.ReportRow, error) {
	xs := s.matching(f)
	newestFirst(xs)
	out := make([]domain.ReportRow, 0, len(xs))
	for _, x := range xs {
		at := x.CreatedAt.UTC()
		out = append(out, domain.ReportRow{
			Sale:      x,
			ItemCount: itemCount(&x),
			Weekday:   int(at.Weekday()) + 1,
			Hour:      at.Hour(),
		})
	}
	return out, nil
}

func (s *reports) Stats(_ context.Context, f domain.ReportFilter) (domain.SalesStats, error) {
	var st domain.SalesStats
	for i, x := range s.matching(f) {
		st.Count++
		st.Revenue += x.Total
		st.ItemsTotal += itemCount(&x)
		if i == 0 || x.Total > st.Max {
			st.Max = x.Total
		}
		if i == 0 || x.Total < st.Min {
			st.Min = x.Total
		}
	}
	if st.Count > 0 {
		st.Average = st.Revenue / float64(st.Count)
	}
	return st, nil
}

func (s *reports) ByStatus(_ context.Context, f domain.ReportFilter) ([]domain.StatusBucket, error) {
	idx := map[string]int{}
	out := []domain.StatusBucket{}
	for _, x := range s.matching(f) {
		i, ok := idx[x.Status]
		if !ok {
			i = len(out)
			idx[x.Status] = i
			out = append(out, domain.StatusBucket{Status: x.Status})
		}
		out[i].Count++
		out[i].Revenue += x.Total
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

func (s *reports) ByPaymentMethod(_ context.Context, f domain.ReportFilter) ([]domain.MethodBucket, error) {
	idx := map[string]int{}
	out := []domain.MethodBucket{}
	for _, x := range s.matching(f) {
		i, ok := idx[x.PaymentMethod]
		if !ok {
			i = len(out)
			idx[x.PaymentMethod] = i
			out = append(out, domain.MethodBucket{Method: x.PaymentMethod})
		}
		out[i].Count++
		out[i].Total += x.Total
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Method < out[j].Method
	})
	return out, nil
}

func (s *reports) TopProducts(_ context.Context, f domain.ReportFilter, n int) ([]domain.ProductSales, error) {
	idx := map[string]int{}
	out := []domain.ProductSales{}
	for _, x := range s.matching(f) {
		for _, l := range x.Lines {
			i, ok := idx[l.Name]
			if !ok {
				i = len(out)
				idx[l.Name] = i
				out = append(out, domain.ProductSales{Name: l.Name})
			}
			out[i].Quantity += l.Quantity
			out[i].Revenue += l.Subtotal
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *reports) ByDay(_ context.Context, since time.Time) ([]domain.DayBucket, error) {
	idx := map[string]int{}
	out := []domain.DayBucket{}
	for _, x := range s.matching(domain.ReportFilter{From: &since}) {
		day := x.CreatedAt.UTC().Format("2006-01-02")
		i, ok := idx[day]
		if !ok {
			i = len(out)
			idx[day] = i
			out = append(out, domain.DayBucket{Day: day})
		}
		out[i].Count++
		out[i].Total += x.Total
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (s *reports) PaymentMethods(context.Context) ([]string, error) {
	seen := map[string]bool{}
	out := []string{}
	for _, x := range s.matching(domain.ReportFilter{}) {
		if x.PaymentMethod != "" && !seen[x.PaymentMethod] {
			seen[x.PaymentMethod] = true
			out = append(out, x.PaymentMethod)
		}
	}
	sort.Strings(out)
	return out, nil
}
