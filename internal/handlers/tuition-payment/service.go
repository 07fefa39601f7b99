package tuitionpayment

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tuition-checkout/internal/common/errors"
	"tuition-checkout/internal/common/hubspot"
	"tuition-checkout/internal/common/logger"
	"tuition-checkout/internal/common/metrics"
	"tuition-checkout/internal/common/observability"
	"tuition-checkout/internal/common/payments"
	"tuition-checkout/internal/tuition"
)

// Session sources for the sessions-created metric.
const (
	sourceNew   = "new"
	sourceCache = "cache"
)

type Service struct {
	config   *Config
	logger   logger.Logger
	crm      CRM
	checkout CheckoutProvider
	cache    SessionCache
	obs      *observability.Observability
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		config:   config,
		logger:   log,
		crm:      deps.CRM,
		checkout: deps.Checkout,
		cache:    deps.Cache,
		obs:      deps.Observability,
	}
}

// Checkout validates a payment request against the deal's current balance and
// returns the hosted checkout URL to redirect to.
func (s *Service) Checkout(ctx context.Context, input *CheckoutInput) (*CheckoutOutput, error) {
	paymentType := tuition.ParsePaymentType(input.Type)
	log := s.logger.WithFields(map[string]interface{}{
		"requestId":   input.RequestID,
		"dealId":      input.DealID,
		"paymentType": string(paymentType),
	})
	log.Info("Executing checkout", nil)

	out, err := s.checkoutFlow(ctx, input, paymentType, log)
	if err != nil {
		stdErr := errors.Normalize(err)
		metrics.RecordRejection(string(stdErr.Code))
		s.obs.RecordCheckout(ctx, string(paymentType), "rejected")
		log.Info("Checkout rejected", map[string]interface{}{
			"outcome":   "rejected",
			"errorCode": string(stdErr.Code),
		})
		return nil, stdErr
	}

	source := sourceNew
	if out.FromCache {
		source = sourceCache
	}
	metrics.RecordSession(string(out.PaymentType), source)
	s.obs.RecordCheckout(ctx, string(out.PaymentType), "redirected")
	log.Info("Checkout session ready", map[string]interface{}{
		"outcome":         "redirected",
		"sessionId":       out.SessionID,
		"source":          source,
		"totalMinorUnits": out.TotalMinorUnits,
	})
	return out, nil
}

func (s *Service) checkoutFlow(ctx context.Context, input *CheckoutInput, paymentType tuition.PaymentType, log logger.Logger) (*CheckoutOutput, error) {
	if input.DealID == "" {
		return nil, errors.NewMissingIdentifierError()
	}
	if err := s.requireCRM(); err != nil {
		return nil, err
	}
	if s.checkout == nil || !s.checkout.Configured() {
		return nil, errors.NewConfigurationError("checkout provider secret key is not set")
	}

	deal, err := s.getDeal(ctx, input.DealID)
	if err != nil {
		return nil, err
	}

	policy := s.config.Policy
	balance := policy.Calculate(deal)

	quote, err := policy.Quote(paymentType, input.Amount, balance)
	if err != nil {
		return nil, s.rejection(err, balance)
	}

	out := &CheckoutOutput{
		DealID:          deal.ID,
		PaymentType:     quote.Type,
		Label:           quote.Label,
		TotalMinorUnits: quote.TotalMinorUnits(),
	}

	key := chargeKey(deal.ID, quote.Type, balance.TotalPaid, quote.Base, input.Email)
	nonce := ""
	if s.cache != nil {
		cached, found, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Warn("Session cache read failed", map[string]interface{}{"error": err.Error()})
		} else if found {
			out.RedirectURL = cached
			out.FromCache = true
			return out, nil
		}
	} else {
		nonce = uuid.NewString()
	}

	req := payments.SessionRequest{
		Name:          quote.Label,
		Description:   s.describe(deal, quote),
		UnitAmount:    out.TotalMinorUnits,
		CustomerEmail: input.Email,
		SuccessURL:    returnURL(input.BaseURL, StatusSuccess, deal.ID, input.Email),
		CancelURL:     returnURL(input.BaseURL, StatusCancelled, deal.ID, input.Email),
		Metadata:      map[string]string{
			"dealId":      deal.ID,
			"paymentType": string(quote.Type),
			"baseAmount":  quote.Base.StringFixed(2),
			"surcharge":   quote.RoundedSurcharge().StringFixed(2),
		},
	}

	req.IdempotencyKey = idempotencyKey(req, nonce)

	session, err := s.checkout.CreateSession(ctx, req)
	if err != nil {
		return nil, errors.NewCheckoutAPIError(err).WithMetadata("dealId", deal.ID)
	}
	out.RedirectURL = session.URL
	out.SessionID = session.ID
	s.obs.RecordCharge(ctx, string(quote.Type), quote.RoundedTotal().InexactFloat64())

	if s.cache != nil {
		if err := s.cache.Put(ctx, key, session.URL); err != nil {
			log.Warn("Session cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return out, nil
}

// rejection maps a resolver error to a customer-facing validation error.
func (s *Service) rejection(err error, b tuition.Balance) error {
	policy := s.config.Policy
	switch {
	case stderrors.Is(err, tuition.ErrInvalidAmount):
		return errors.NewValidationError(errors.ErrCodeInvalidAmount,
			"Please enter a valid payment amount, for example 500 or 500.00.")
	case stderrors.Is(err, tuition.ErrAmountBelowMinimum):
		return errors.NewValidationError(errors.ErrCodeAmountBelowMinimum,
			fmt.Sprintf("The minimum custom payment is $%s.", policy.MinimumCustomPayment.StringFixed(2)))
	case stderrors.Is(err, tuition.ErrAmountExceedsBalance):
		return errors.NewValidationError(errors.ErrCodeAmountExceedsBalance,
			fmt.Sprintf("The amount exceeds your remaining balance of $%s.", tuition.FormatAmount(b.Remaining)))
	case stderrors.Is(err, tuition.ErrBalanceUnavailable):
		return errors.NewValidationError(errors.ErrCodeBalanceUnavailable,
			"We could not determine the balance for this enrollment. Please contact us to complete your payment.")
	case stderrors.Is(err, tuition.ErrNoBalanceDue):
		return errors.NewValidationError(errors.ErrCodeNoBalanceDue,
			"There is no balance due for this payment.")
	default:
		return errors.NewInternalError(err)
	}
}

func (s *Service) describe(deal tuition.Deal, q *tuition.Quote) string {
	rate := s.config.Policy.SurchargeRate.Shift(2)
	return fmt.Sprintf("%s, %s: $%s + %s%% card processing fee ($%s)",
		s.config.ProductName, deal.Name, q.Base.StringFixed(2), rate.String(), q.RoundedSurcharge().StringFixed(2))
}

// Lookup resolves the read-only page for a request.
func (s *Service) Lookup(ctx context.Context, input *LookupInput) (*LookupOutput, error) {
	start := time.Now()
	log := s.logger.WithFields(map[string]interface{}{
		"requestId": input.RequestID,
		"dealId":    input.DealID,
	})

	out, err := s.lookupFlow(ctx, input)
	if err != nil {
		stdErr := errors.Normalize(err)
		s.obs.RecordLookup(ctx, time.Since(start), string(stdErr.Code))
		log.Info("Lookup failed", map[string]interface{}{
			"outcome":   "error",
			"errorCode": string(stdErr.Code),
		})
		return nil, stdErr
	}

	s.obs.RecordLookup(ctx, time.Since(start), string(out.View))
	log.Info("Lookup completed", map[string]interface{}{
		"outcome": string(out.View),
		"deals":   len(out.Deals),
	})
	return out, nil
}

func (s *Service) lookupFlow(ctx context.Context, input *LookupInput) (*LookupOutput, error) {
	out := &LookupOutput{Email: input.Email, DealID: input.DealID}

	switch {
	case input.Status == StatusSuccess:
		out.View = ViewSuccess
		return out, nil
	case input.Status == StatusCancelled && input.DealID == "":
		out.View = ViewCancelled
		return out, nil
	case input.DealID == "" && input.Email == "":
		out.View = ViewLookupForm
		return out, nil
	}

	if err := s.requireCRM(); err != nil {
		return nil, err
	}

	if input.DealID != "" {
		deal, err := s.getDeal(ctx, input.DealID)
		if err != nil {
			return nil, err
		}
		out.View = ViewSummary
		out.Summary = s.summarize(deal)
		out.Summary.Cancelled = input.Status == StatusCancelled
		return out, nil
	}

	deals, err := s.dealsForEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}

	if len(deals) == 1 {
		out.View = ViewSummary
		out.DealID = deals[0].ID
		out.Summary = s.summarize(deals[0])
		return out, nil
	}

	out.View = ViewSelection
	for _, d := range deals {
		out.Deals = append(out.Deals, DealOption{
			DealID:    d.ID,
			Name:      d.Name,
			Remaining: s.config.Policy.Calculate(d).Remaining,
		})
	}
	sort.SliceStable(out.Deals, func(i, j int) bool {
		a, b := strings.ToLower(out.Deals[i].Name), strings.ToLower(out.Deals[j].Name)
		if a != b {
			return a < b
		}
		return out.Deals[i].DealID < out.Deals[j].DealID
	})
	return out, nil
}

func (s *Service) dealsForEmail(ctx context.Context, email string) ([]tuition.Deal, error) {
	contactID, err := s.crm.SearchContactIDByEmail(ctx, email)
	if stderrors.Is(err, hubspot.ErrNotFound) {
		return nil, errors.NewContactNotFoundError(email)
	}
	if err != nil {
		return nil, errors.NewCRMAPIError("search_contact", err)
	}

	ids, err := s.crm.ListDealIDsForContact(ctx, contactID)
	if stderrors.Is(err, hubspot.ErrNotFound) {
		return nil, errors.NewContactNotFoundError(email)
	}
	if err != nil {
		return nil, errors.NewCRMAPIError("list_associations", err)
	}
	if len(ids) == 0 {
		return nil, errors.NewNoDealsForContactError(contactID)
	}

	raw, err := s.crm.BatchReadDeals(ctx, ids)
	if err != nil {
		return nil, errors.NewCRMAPIError("batch_read_deals", err)
	}
	if len(raw) == 0 {
		return nil, errors.NewNoDealsForContactError(contactID)
	}

	deals := make([]tuition.Deal, 0, len(raw))
	for i := range raw {
		deals = append(deals, s.toDeal(&raw[i]))
	}
	return deals, nil
}

func (s *Service) summarize(deal tuition.Deal) *DealSummary {
	policy := s.config.Policy
	balance := policy.Calculate(deal)
	offers := policy.Offers(balance)

	summary := &DealSummary{
		DealID:        deal.ID,
		Name:          deal.Name,
		Balance:       balance,
		Offers:        offers,
		SurchargeRate: policy.SurchargeRate,
	}

	for _, offer := range []struct {
		shown bool
		t     tuition.PaymentType
	}{
		{offers.ApplicationFee, tuition.PaymentTypeApplicationFee},
		{offers.Deposit, tuition.PaymentTypeDeposit},
		{offers.Remaining, tuition.PaymentTypeRemaining},
	} {
		if !offer.shown {
			continue
		}
		q, err := policy.Quote(offer.t, "", balance)
		if err != nil {
			continue
		}
		summary.Options = append(summary.Options, PaymentOption{
			Type:  q.Type,
			Label: q.Label,
			Base:  q.Base.Round(2),
			Fee:   q.RoundedSurcharge(),
			Total: q.RoundedTotal(),
		})
	}
	return summary
}

func (s *Service) requireCRM() error {
	if s.crm == nil || !s.crm.Configured() {
		return errors.NewConfigurationError("CRM access token is not set")
	}
	return nil
}

func (s *Service) getDeal(ctx context.Context, dealID string) (tuition.Deal, error) {
	raw, err := s.crm.GetDeal(ctx, dealID)
	if stderrors.Is(err, hubspot.ErrNotFound) {
		return tuition.Deal{}, errors.NewDealNotFoundError(dealID)
	}
	if err != nil {
		return tuition.Deal{}, errors.NewCRMAPIError("get_deal", err).WithMetadata("dealId", dealID)
	}
	return s.toDeal(raw), nil
}

func (s *Service) toDeal(raw *hubspot.Deal) tuition.Deal {
	props := s.config.Properties
	deal := tuition.Deal{
		ID:              raw.ID,
		Name:            strings.TrimSpace(raw.Properties[props.Name]),
		TuitionAmount:   raw.Properties[props.TuitionAmount],
		TotalAmountPaid: raw.Properties[props.TotalAmountPaid],
	}
	for i, name := range props.PaymentSlots {
		deal.PaymentSlots[i] = raw.Properties[name]
	}
	if deal.Name == "" {
		deal.Name = "Enrollment " + raw.ID
	}
	return deal
}

// returnURL builds a link back to this handler carrying the deal and email.
func returnURL(base string, status LookupStatus, dealID, email string) string {
	q := url.Values{}
	q.Set(ParamStatus, string(status))
	q.Set(ParamDealID, dealID)
	if email != "" {
		q.Set(ParamEmail, email)
	}
	return strings.TrimRight(base, "/") + "/?" + q.Encode()
}

// SummaryTotals are the summary amounts as strings, "unknown" when missing.
func (d *DealSummary) SummaryTotals() (tuitionAmount, paid, remaining string) {
	return tuition.FormatAmount(d.Balance.Tuition),
		tuition.FormatAmount(d.Balance.TotalPaid),
		tuition.FormatAmount(d.Balance.Remaining)
}

// FeePercent renders the surcharge rate as a percentage, e.g. "3.5".
func (d *DealSummary) FeePercent() string {
	return d.SurchargeRate.Mul(decimal.NewFromInt(100)).String()
}
