package tuitionpayment

import (
	"context"

	"github.com/shopspring/decimal"

	"tuition-checkout/internal/common/hubspot"
	"tuition-checkout/internal/common/logger"
	"tuition-checkout/internal/common/observability"
	"tuition-checkout/internal/common/payments"
	"tuition-checkout/internal/tuition"
)

// CRM is the subset of the HubSpot client the service uses.
type CRM interface {
	Configured() bool
	GetDeal(ctx context.Context, dealID string) (*hubspot.Deal, error)
	SearchContactIDByEmail(ctx context.Context, email string) (string, error)
	ListDealIDsForContact(ctx context.Context, contactID string) ([]string, error)
	BatchReadDeals(ctx context.Context, ids []string) ([]hubspot.Deal, error)
}

// CheckoutProvider creates hosted checkout sessions.
type CheckoutProvider interface {
	Configured() bool
	CreateSession(ctx context.Context, req payments.SessionRequest) (*payments.Session, error)
}

// SessionCache remembers checkout URLs for identical charges.
type SessionCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, url string) error
}

type ServiceDependencies struct {
	Logger        logger.Logger
	CRM           CRM
	Checkout      CheckoutProvider
	Cache         SessionCache // optional
	Observability *observability.Observability
}

type CheckoutInput struct {
	DealID string
	Email  string
	Type   string
	Amount string
	// BaseURL is the absolute URL return links are built on.
	BaseURL   string
	RequestID string
}

type CheckoutOutput struct {
	RedirectURL     string
	SessionID       string
	DealID          string
	PaymentType     tuition.PaymentType
	Label           string
	TotalMinorUnits int64
	FromCache       bool
}

type LookupStatus string

const (
	StatusNone      LookupStatus = ""
	StatusSuccess   LookupStatus = "success"
	StatusCancelled LookupStatus = "cancelled"
)

type LookupInput struct {
	DealID    string
	Email     string
	Status    LookupStatus
	RequestID string
}

// View selects the page rendered for a lookup.
type View string

const (
	ViewLookupForm View = "lookup"
	ViewSelection  View = "selection"
	ViewSummary    View = "summary"
	ViewSuccess    View = "success"
	ViewCancelled  View = "cancelled"
)

type LookupOutput struct {
	View    View
	Email   string
	DealID  string
	Summary *DealSummary
	Deals   []DealOption
}

// DealSummary is a deal with its balance and the payments that can be started.
type DealSummary struct {
	DealID  string
	Name    string
	Balance tuition.Balance
	Offers  tuition.Offers
	Options []PaymentOption
	// SurchargeRate is the card fee as a fraction, e.g. 0.035.
	SurchargeRate decimal.Decimal
	Cancelled     bool
}

// PaymentOption is a fixed-amount payment with its surcharge preview.
type PaymentOption struct {
	Type  tuition.PaymentType
	Label string
	Base  decimal.Decimal
	Fee   decimal.Decimal
	Total decimal.Decimal
}

// DealOption is one row of the deal selection list.
type DealOption struct {
	DealID    string
	Name      string
	Remaining decimal.NullDecimal
}
