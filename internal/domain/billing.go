package domain

import (
	"fmt"
	"time"
)

// MonthLayout formats the usage_monthly month key.
const MonthLayout = "2006-01"

// SubscriptionStatusActive is the only status that grants access
const SubscriptionStatusActive = "active"

// Billing event types
const (
	BillingEventPlanLimitExceeded = "plan_limit_exceeded"
	BillingEventOverageCharged    = "overage_charged"
)

// Plan is a billing plan
type Plan struct {
	ID                string
	Name              string
	MonthlyTokenLimit int64
	PriceCents        int64
	OverageAllowed    bool
	CreatedAt         time.Time
}

// ValidatePlan validates a Plan instance
func ValidatePlan(p *Plan) error {
	if p == nil {
		return fmt.Errorf("plan cannot be nil")
	}
	if p.ID == "" {
		return fmt.Errorf("plan ID is required")
	}
	if p.Name == "" {
		return fmt.Errorf("plan Name is required")
	}
	if p.MonthlyTokenLimit <= 0 {
		return fmt.Errorf("plan MonthlyTokenLimit must be positive")
	}
	if p.PriceCents < 0 {
		return fmt.Errorf("plan PriceCents cannot be negative")
	}
	return nil
}

// Subscription binds a tenant to a plan for a billing period
type Subscription struct {
	ID                 string
	TenantID           string
	PlanID             string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
}

// IsActiveAt reports whether the subscription grants access at t.
func (s *Subscription) IsActiveAt(t time.Time) bool {
	return s.Status == SubscriptionStatusActive && !s.CurrentPeriodEnd.Before(t)
}

// ActivePlan is the plan currently in force for a tenant
type ActivePlan struct {
	Plan         Plan
	Subscription Subscription
}

// UsageMonthly is the per-tenant, per-month token ledger row
type UsageMonthly struct {
	TenantID      string
	Month         string
	TokensUsed    int64
	RequestsCount int64
	UpdatedAt     time.Time
}

// MonthKey returns the ledger key for t.
func MonthKey(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}

// NextMonthStart returns the first instant of the month after t, in UTC.
func NextMonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

// QuotaStatus is the result of a quota pre-check
type QuotaStatus struct {
	Limit     int64     `json:"limit"`
	Used      int64     `json:"used"`
	Remaining int64     `json:"remaining"`
	ResetDate time.Time `json:"reset_date"`
}

// BillingEvent is an audit record of a billing-relevant occurrence
type BillingEvent struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}
