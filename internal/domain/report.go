package domain

import "time"

// ReportFilter narrows the sales considered by a report. Nil bounds are open.
type ReportFilter struct {
	From          *time.Time
	To            *time.Time
	Status        string
	PaymentMethod string
	MinTotal      *float64
	MaxTotal      *float64
}

// DateOnly keeps the time window and drops every other predicate.
func (f ReportFilter) DateOnly() ReportFilter {
	return ReportFilter{From: f.From, To: f.To}
}

// Match reports whether s satisfies every predicate of the filter.
func (f ReportFilter) Match(s *Sale) bool {
	if f.From != nil && s.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && s.CreatedAt.After(*f.To) {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.PaymentMethod != "" && s.PaymentMethod != f.PaymentMethod {
		return false
	}
	if f.MinTotal != nil && s.Total < *f.MinTotal {
		return false
	}
	if f.MaxTotal != nil && s.Total > *f.MaxTotal {
		return false
	}
	return true
}

type ReportRow struct {
	Sale      `bson:",inline"`
	ItemCount int `bson:"item_count" json:"item_count"`
	Weekday   int `bson:"weekday" json:"weekday"` // 1 = Sunday
	Hour      int `bson:"hour" json:"hour"`
}

type SalesStats struct {
	Count      int     `bson:"count" json:"count"`
	Revenue    float64 `bson:"revenue" json:"revenue"`
	Average    float64 `bson:"average" json:"average"`
	Max        float64 `bson:"max" json:"max"`
	Min        float64 `bson:"min" json:"min"`
	ItemsTotal int     `bson:"items_total" json:"items_total"`
}

type StatusBucket struct {
	Status  string  `bson:"_id" json:"status"`
	Count   int     `bson:"count" json:"count"`
	Revenue float64 `bson:"revenue" json:"revenue"`
}

type MethodBucket struct {
	Method string  `bson:"method" json:"method"`
	Count  int     `bson:"count" json:"count"`
	Total  float64 `bson:"total" json:"total"`
}

type ProductSales struct {
	Name     string  `bson:"name" json:"name"`
	Quantity int     `bson:"quantity" json:"quantity"`
	Revenue  float64 `bson:"revenue" json:"revenue"`
}

type DayBucket struct {
	Day   string  `bson:"_id" json:"day"` // YYYY-MM-DD
	Count int     `bson:"count" json:"count"`
	Total float64 `bson:"total" json:"total"`
}

// StockBuckets splits active products by remaining units.
type StockBuckets struct {
	Critical []Product `json:"critical"` // <= 2
	Low      []Product `json:"low"`      // 3..5
	Good     []Product `json:"good"`     // > 5
}
