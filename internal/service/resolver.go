package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/voicedesk/callflow/internal/cache"
	"github.com/voicedesk/callflow/internal/domain/call"
	"github.com/voicedesk/callflow/internal/domain/order"
	"github.com/voicedesk/callflow/internal/orders"
	"github.com/voicedesk/callflow/internal/prompts"
)

// Resolution is the outcome of one order lookup, ready to be narrated and
// persisted by the call flow.
type Resolution struct {
	Found   bool
	Overdue bool

	// Promised is the computed promised delivery date, nil when not found.
	Promised *time.Time

	// Narration is the status text spoken to the caller when the order is
	// found and on schedule, or the not-found text otherwise. The overdue
	// hand-off script is not built here; the flow owns that branch.
	Narration string

	// Notes is a short summary stored on the order row.
	Notes string
}

// OrderResolver looks an order up in the external order system, computes the
// delivery schedule and classifies it as overdue or on schedule.
type OrderResolver interface {
	Resolve(ctx context.Context, lang call.Language, orderNumber string, today time.Time) (*Resolution, error)
}

type orderResolver struct {
	client orders.Client
	cache  cache.Cache
	ttl    time.Duration
}

// NewOrderResolver creates a resolver backed by the given order system
// client. Lookups are cached for ttl so repeated attempts within one call
// (or retries across webhooks) do not hit the external system again.
func NewOrderResolver(client orders.Client, c cache.Cache, ttl time.Duration) OrderResolver {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &orderResolver{client: client, cache: c, ttl: ttl}
}

var _ OrderResolver = (*orderResolver)(nil)

// productionWeeks maps the production country to its min/max lead time in
// weeks. Unknown countries fall back to the domestic window.
var productionWeeks = map[string][2]int{
	"TR": {6, 10},
	"CN": {8, 12},
	"PL": {4, 8},
	"IT": {4, 8},
	"DE": {8, 12},
}

// schedule is the computed production and delivery timeline of an order.
type schedule struct {
	orderDate       time.Time
	productionStart time.Time
	minWeeks        int
	maxWeeks        int
	promised        time.Time
	week            int
	year            int
	windowStart     time.Time
	windowEnd       time.Time
}

// computeSchedule derives the timeline from the order date and production
// country: production starts one week after the order, the promised delivery
// date is the production maximum plus two weeks of shipping, and the spoken
// window spans three days either side of it.
func computeSchedule(orderDate time.Time, country string) schedule {
	weeks, ok := productionWeeks[strings.ToUpper(strings.TrimSpace(country))]
	if !ok {
		weeks = productionWeeks["DE"]
	}

	start := orderDate.AddDate(0, 0, 7)
	promised := start.AddDate(0, 0, weeks[1]*7).AddDate(0, 0, 14)
	year, week := promised.ISOWeek()

	return schedule{
		orderDate:       orderDate,
		productionStart: start,
		minWeeks:        weeks[0],
		maxWeeks:        weeks[1],
		promised:        promised,
		week:            week,
		year:            year,
		windowStart:     promised.AddDate(0, 0, -3),
		windowEnd:       promised.AddDate(0, 0, 3),
	}
}

// Resolve implements OrderResolver.
func (r *orderResolver) Resolve(ctx context.Context, lang call.Language, orderNumber string, today time.Time) (*Resolution, error) {
	rec, err := r.lookup(ctx, orderNumber)
	if errors.Is(err, orders.ErrNotFound) {
		return &Resolution{
			Found:     false,
			Narration: prompts.OrderNotFound(lang, orderNumber),
			Notes:     "Order not found in external order system",
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve order %s: %w", orderNumber, err)
	}

	res := &Resolution{
		Found: true,
		Notes: fmt.Sprintf("Order found: %s - %s %s",
			orValue(rec.InvoiceNumber, "N/A"), rec.FirstName, rec.LastName),
	}

	if rec.OrderDate == nil {
		// Without an order date there is no schedule and no overdue
		// classification; narrate what is known.
		res.Narration = prompts.StatusNarration(lang, prompts.StatusInfo{
			OrderNumber:  orderNumber,
			CustomerName: rec.FirstName,
			AlreadyPaid:  speechAmount(rec.AlreadyPaid),
			FullAmount:   speechAmount(rec.FullAmount),
		})
		return res, nil
	}

	sched := computeSchedule(*rec.OrderDate, rec.CountryCode)
	promised := sched.promised
	res.Promised = &promised
	res.Overdue = order.IsOverdue(&promised, today)

	res.Narration = prompts.StatusNarration(lang, prompts.StatusInfo{
		OrderNumber:         orderNumber,
		CustomerName:        rec.FirstName,
		AlreadyPaid:         speechAmount(rec.AlreadyPaid),
		FullAmount:          speechAmount(rec.FullAmount),
		OrderDate:           sched.orderDate.Format("02.01.2006"),
		ProductionStart:     sched.productionStart.Format("02.01.2006"),
		ProductionMinWeeks:  sched.minWeeks,
		ProductionMaxWeeks:  sched.maxWeeks,
		DeliveryWeek:        sched.week,
		DeliveryYear:        sched.year,
		DeliveryWindowStart: sched.windowStart.Format("02.01.2006"),
		DeliveryWindowEnd:   sched.windowEnd.Format("02.01.2006"),
	})
	return res, nil
}

// lookup fetches the order record, going to the cache first.
func (r *orderResolver) lookup(ctx context.Context, orderNumber string) (*orders.Record, error) {
	key := cache.OrderLookups.Key(orderNumber)

	if r.cache != nil {
		if raw, err := r.cache.Get(ctx, key); err == nil && raw != "" {
			var rec orders.Record
			if jErr := json.Unmarshal([]byte(raw), &rec); jErr == nil {
				return &rec, nil
			}
		}
	}

	rec, err := r.client.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if raw, jErr := json.Marshal(rec); jErr == nil {
			if cErr := r.cache.Set(ctx, key, string(raw), r.ttl); cErr != nil {
				log.Printf("[Resolver] Failed to cache lookup for %s: %v", orderNumber, cErr)
			}
		}
	}

	return rec, nil
}

// speechAmount turns "1.680,00" style amounts into plain numbers the voice
// engine reads naturally.
func speechAmount(amount string) string {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return "0"
	}
	normalized := strings.ReplaceAll(amount, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	f, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return amount
	}
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func orValue(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
