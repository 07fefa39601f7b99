package tuitionpayment

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tuition-checkout/internal/common/errors"
	"tuition-checkout/internal/common/hubspot"
	"tuition-checkout/internal/common/logger"
	"tuition-checkout/internal/common/payments"
	"tuition-checkout/internal/tuition"
)

func newTestService(t *testing.T, crm CRM, checkout CheckoutProvider, cache SessionCache) *Service {
	t.Helper()
	return NewService(ServiceDependencies{
		Logger:   logger.NewTestLogger(t),
		CRM:      crm,
		Checkout: checkout,
		Cache:    cache,
	}, DefaultConfig())
}

func checkoutInput(dealID, paymentType, amount string) *CheckoutInput {
	return &CheckoutInput{
		DealID:  dealID,
		Email:   "student@example.com",
		Type:    paymentType,
		Amount:  amount,
		BaseURL: "https://pay.example.edu",
	}
}

func requireCode(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr), "expected StandardError, got %T", err)
	assert.Equal(t, code, stdErr.Code)
}

// ==========================
// Checkout
// ==========================

func TestService_Checkout_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		paid        string
		paymentType string
		amount      string
		wantCents   int64
		wantType    tuition.PaymentType
		wantLabel   string
		wantCode    errors.ErrorCode
	}{
		{name: "A: application fee", paid: "0", paymentType: "appfee", wantCents: 25875, wantType: tuition.PaymentTypeApplicationFee, wantLabel: "Application Fee"},
		{name: "A: deposit", paid: "0", paymentType: "deposit", wantCents: 258750, wantType: tuition.PaymentTypeDeposit, wantLabel: "Program Deposit"},
		{name: "B: remaining", paid: "2500", paymentType: "remaining", wantCents: 776250, wantType: tuition.PaymentTypeRemaining, wantLabel: "Remaining Program Balance"},
		{name: "B: unknown type means remaining", paid: "2500", paymentType: "bogus", wantCents: 776250, wantType: tuition.PaymentTypeRemaining},
		{name: "B: deposit already met", paid: "2500", paymentType: "deposit", wantCode: errors.ErrCodeNoBalanceDue},
		{name: "C: fully paid remaining", paid: "10000", paymentType: "remaining", wantCode: errors.ErrCodeNoBalanceDue},
		{name: "C: fully paid appfee", paid: "10000", paymentType: "appfee", wantCode: errors.ErrCodeNoBalanceDue},
		{name: "C: fully paid custom", paid: "10000", paymentType: "custom", amount: "300", wantCode: errors.ErrCodeNoBalanceDue},
		{name: "D: custom below minimum", paid: "2500", paymentType: "custom", amount: "100", wantCode: errors.ErrCodeAmountBelowMinimum},
		{name: "E: custom above remaining", paid: "2500", paymentType: "custom", amount: "8000", wantCode: errors.ErrCodeAmountExceedsBalance},
		{name: "custom exact remaining", paid: "2500", paymentType: "custom", amount: "7500", wantCents: 776250, wantType: tuition.PaymentTypeCustom},
		{name: "custom not a number", paid: "2500", paymentType: "custom", amount: "lots", wantCode: errors.ErrCodeInvalidAmount},
		{name: "unparsable paid", paid: "n/a", paymentType: "remaining", wantCode: errors.ErrCodeBalanceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crm := newMockCRM()
			crm.On("GetDeal", mock.Anything, "D1").Return(hubspotDeal("D1", "Fall Cohort", "10000", tt.paid), nil)

			checkout := newMockCheckout()
			if tt.wantCode == "" {
				checkout.On("CreateSession", mock.Anything, mock.MatchedBy(func(req payments.SessionRequest) bool {
					return req.UnitAmount == tt.wantCents
				})).Return(&payments.Session{ID: "cs_1", URL: "https://checkout.example/cs_1"}, nil)
			}

			svc := newTestService(t, crm, checkout, nil)
			out, err := svc.Checkout(context.Background(), checkoutInput("D1", tt.paymentType, tt.amount))

			if tt.wantCode != "" {
				requireCode(t, err, tt.wantCode)
				checkout.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://checkout.example/cs_1", out.RedirectURL)
			assert.Equal(t, tt.wantCents, out.TotalMinorUnits)
			assert.Equal(t, tt.wantType, out.PaymentType)
			if tt.wantLabel != "" {
				assert.Equal(t, tt.wantLabel, out.Label)
			}
			assert.False(t, out.FromCache)
			checkout.AssertExpectations(t)
		})
	}
}

func TestService_Checkout_SessionRequest(t *testing.T) {
	crm := newMockCRM()
	crm.On("GetDeal", mock.Anything, "D1").Return(hubspotDeal("D1", "Fall Cohort", "10000", "2500"), nil)

	var captured payments.SessionRequest
	checkout := newMockCheckout()
	checkout.On("CreateSession", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(payments.SessionRequest) }).
		Return(&payments.Session{ID: "cs_1", URL: "https://checkout.example/cs_1"}, nil)

	svc := newTestService(t, crm, checkout, nil)
	_, err := svc.Checkout(context.Background(), checkoutInput("D1", "remaining", ""))
	require.NoError(t, err)

	assert.Equal(t, "Remaining Program Balance", captured.Name)
	assert.Equal(t, "student@example.com", captured.CustomerEmail)
	assert.Contains(t, captured.Description, "Fall Cohort")
	assert.Contains(t, captured.Description, "3.5%")
	assert.True(t, strings.HasPrefix(captured.CancelURL, "https://pay.example.edu/?"))
	assert.Contains(t, captured.CancelURL, "status=cancelled")
	assert.Contains(t, captured.CancelURL, "dealId=D1")
	assert.Contains(t, captured.CancelURL, "email=student%40example.com")
	assert.Contains(t, captured.SuccessURL, "status=success")
	assert.Equal(t, "7500.00", captured.Metadata["baseAmount"])
	assert.Equal(t, "262.50", captured.Metadata["surcharge"])
	assert.Equal(t, "remaining", captured.Metadata["paymentType"])
	assert.NotEmpty(t, captured.IdempotencyKey)
}

func TestService_Checkout_OrderedChecks(t *testing.T) {
	t.Run("missing deal id comes first", func(t *testing.T) {
		crm := newMockCRM()
		crm.configured = false
		svc := newTestService(t, crm, newMockCheckout(), nil)

		_, err := svc.Checkout(context.Background(), checkoutInput("", "remaining", ""))
		requireCode(t, err, errors.ErrCodeMissingIdentifier)
	})

	t.Run("crm not configured", func(t *testing.T) {
		crm := newMockCRM()
		crm.configured = false
		svc := newTestService(t, crm, newMockCheckout(), nil)

		_, err := svc.Checkout(context.Background(), checkoutInput("D1", "remaining", ""))
		requireCode(t, err, errors.ErrCodeConfiguration)
		crm.AssertNotCalled(t, "GetDeal", mock.Anything, mock.Anything)
	})

	t.Run("checkout not configured", func(t *testing.T) {
		checkout := newMockCheckout()
		checkout.configured = false
		svc := newTestService(t, newMockCRM(), checkout, nil)

		_, err := svc.Checkout(context.Background(), checkoutInput("D1", "remaining", ""))
		requireCode(t, err, errors.ErrCodeConfiguration)
	})

	t.Run("F: deal not found creates no session", func(t *testing.T) {
		crm := newMockCRM()
		crm.On("GetDeal", mock.Anything, "nope").Return(nil, hubspot.ErrNotFound)
		checkout := newMockCheckout()
		svc := newTestService(t, crm, checkout, nil)

		_, err := svc.Checkout(context.Background(), checkoutInput("nope", "remaining", ""))
		requireCode(t, err, errors.ErrCodeDealNotFound)
		checkout.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
	})

	t.Run("crm failure", func(t *testing.T) {
		crm := newMockCRM()
		crm.On("GetDeal", mock.Anything, "D1").Return(nil, stderrors.New("status 502"))
		svc := newTestService(t, crm, newMockCheckout(), nil)

		_, err := svc.Checkout(context.Background(), checkoutInput("D1", "remaining", ""))
		requireCode(t, err, errors.ErrCodeCRMAPIError)
	})

	t.Run("checkout failure", func(t *testing.T) {
		crm := newMockCRM()
		crm.On("GetDeal", mock.Anything, "D1").Return(hubspotDeal("D1", "X", "10000", "0"), nil)
		checkout := newMockCheckout()
		checkout.On("CreateSession", mock.Anything, mock.Anything).Return(nil, stderrors.New("card_declined"))
		svc := newTestService(t, crm, checkout, nil)

		_, err := svc.Checkout(context.Background(), checkoutInput("D1", "remaining", ""))
		requireCode(t, err, errors.ErrCodeCheckoutAPIError)
	})
}

func TestService_Checkout_IdempotentCharges(t *testing.T) {
	crm := newMockCRM()
	crm.On("GetDeal", mock.Anything, "D1").Return(hubspotDeal("D1", "X", "10000", "1234.56"), nil)

	var amounts []int64
	checkout := newMockCheckout()
	checkout.On("CreateSession", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { amounts = append(amounts, args.Get(1).(payments.SessionRequest).UnitAmount) }).
		Return(&payments.Session{ID: "cs", URL: "https://checkout.example/cs"}, nil)

	svc := newTestService(t, crm, checkout, nil)
	for i := 0; i < 2; i++ {
		_, err := svc.Checkout(context.Background(), checkoutInput("D1", "remaining", ""))
		require.NoError(t, err)
	}

	require.Len(t, amounts, 2)
	assert.Equal(t, amounts[0], amounts[1])
}

// ==========================
// Session reuse
// ==========================

func TestService_Checkout_ReusesCachedSession(t *testing.T) {
	crm := newMockCRM()
	crm.On("GetDeal", mock.Anything, "D1").Return(hubspotDeal("D1", "X", "10000", "2500"), nil)

	cache := &MockCache{}
	cache.On("Get", mock.Anything, "checkout:D1:remaining:250000:750000:student@example.com").
		Return("https://checkout.example/cached", true, nil)

	checkout := newMockCheckout()
	svc := newTestService(t, crm, checkout, cache)

	out, err := svc.Checkout(context.Background(), checkoutInput("D1", "remaining", ""))
	require.NoError(t, err)
	assert.True(t, out.FromCache)
	assert.Equal(t, "https://checkout.example/cached", out.RedirectURL)
	checkout.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
}

func TestService_Checkout_StoresNewSession(t *testing.T) {
	crm := newMockCRM()
	crm.On("GetDeal", mock.Anything, "D1").Return(hubspotDeal("D1", "X", "10000", "2500"), nil)

	key := "checkout:D1:remaining:250000:750000:student@example.com"
	cache := &MockCache{}
	cache.On("Get", mock.Anything, key).Return("", false, nil)
	cache.On("Put", mock.Anything, key, "https://checkout.example/new").Return(nil)

	checkout := newMockCheckout()
	checkout.On("CreateSession", mock.Anything, mock.MatchedBy(func(req payments.SessionRequest) bool {
		return req.IdempotencyKey == idempotencyKey(req, "")
	})).Return(&payments.Session{ID: "cs_new", URL: "https://checkout.example/new"}, nil)

	svc := newTestService(t, crm, checkout, cache)

	out, err := svc.Checkout(context.Background(), checkoutInput("D1", "remaining", ""))
	require.NoError(t, err)
	assert.False(t, out.FromCache)
	cache.AssertExpectations(t)
	checkout.AssertExpectations(t)
}

func TestService_Checkout_IdempotencyKeyFollowsRequest(t *testing.T) {
	crm := newMockCRM()
	crm.On("GetDeal", mock.Anything, "D1").Return(hubspotDeal("D1", "X", "10000", "2500"), nil)

	cache := &MockCache{}
	cache.On("Get", mock.Anything, "checkout:D1:remaining:250000:750000:student@example.com").Return("", false, nil)
	cache.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	var keys []string
	checkout := newMockCheckout()
	checkout.On("CreateSession", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			keys = append(keys, args.Get(1).(payments.SessionRequest).IdempotencyKey)
		}).
		Return(&payments.Session{ID: "cs_new", URL: "https://checkout.example/new"}, nil)

	svc := newTestService(t, crm, checkout, cache)

	first := checkoutInput("D1", "remaining", "")
	again := checkoutInput("D1", "remaining", "")
	upper := checkoutInput("D1", "remaining", "")
	upper.Email = "Student@Example.com"
	otherHost := checkoutInput("D1", "remaining", "")
	otherHost.BaseURL = "https://other.example.edu"

	for _, in := range []*CheckoutInput{first, again, upper, otherHost} {
		_, err := svc.Checkout(context.Background(), in)
		require.NoError(t, err)
	}

	require.Len(t, keys, 4)
	assert.Equal(t, keys[0], keys[1])
	assert.NotEqual(t, keys[0], keys[2])
	assert.NotEqual(t, keys[0], keys[3])
	assert.NotEqual(t, keys[2], keys[3])
}

func TestService_Checkout_CacheErrorsAreIgnored(t *testing.T) {
	crm := newMockCRM()
	crm.On("GetDeal", mock.Anything, "D1").Return(hubspotDeal("D1", "X", "10000", "2500"), nil)

	cache := &MockCache{}
	cache.On("Get", mock.Anything, mock.Anything).Return("", false, stderrors.New("connection refused"))
	cache.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(stderrors.New("connection refused"))

	checkout := newMockCheckout()
	checkout.On("CreateSession", mock.Anything, mock.Anything).
		Return(&payments.Session{ID: "cs", URL: "https://checkout.example/cs"}, nil)

	svc := newTestService(t, crm, checkout, cache)

	out, err := svc.Checkout(context.Background(), checkoutInput("D1", "remaining", ""))
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/cs", out.RedirectURL)
}

// ==========================
// Lookup
// ==========================

func TestService_Lookup_ByDealID(t *testing.T) {
	crm := newMockCRM()
	crm.On("GetDeal", mock.Anything, "D1").Return(hubspotDeal("D1", "Fall Cohort", "10000", "0"), nil)
	svc := newTestService(t, crm, newMockCheckout(), nil)

	out, err := svc.Lookup(context.Background(), &LookupInput{DealID: "D1"})
	require.NoError(t, err)
	require.Equal(t, ViewSummary, out.View)

	s := out.Summary
	assert.Equal(t, "Fall Cohort", s.Name)
	assert.True(t, s.Offers.ApplicationFee)
	assert.True(t, s.Offers.Custom)

	types := []tuition.PaymentType{}
	for _, o := range s.Options {
		types = append(types, o.Type)
	}
	assert.Equal(t, []tuition.PaymentType{
		tuition.PaymentTypeApplicationFee, tuition.PaymentTypeRemaining,
	}, types)
	assert.Equal(t, "258.75", s.Options[0].Total.StringFixed(2))
	assert.Equal(t, "8.75", s.Options[0].Fee.StringFixed(2))
}

func TestService_Lookup_FullyPaidOffersNothing(t *testing.T) {
	crm := newMockCRM()
	crm.On("GetDeal", mock.Anything, "D1").Return(hubspotDeal("D1", "Done", "10000", "10000"), nil)
	svc := newTestService(t, crm, newMockCheckout(), nil)

	out, err := svc.Lookup(context.Background(), &LookupInput{DealID: "D1"})
	require.NoError(t, err)
	assert.Empty(t, out.Summary.Options)
	assert.False(t, out.Summary.Offers.Any())
}

func TestService_Lookup_ByEmail(t *testing.T) {
	t.Run("single deal shows summary", func(t *testing.T) {
		crm := newMockCRM()
		crm.On("SearchContactIDByEmail", mock.Anything, "a@b.com").Return("C1", nil)
		crm.On("ListDealIDsForContact", mock.Anything, "C1").Return([]string{"D1"}, nil)
		crm.On("BatchReadDeals", mock.Anything, []string{"D1"}).
			Return([]hubspot.Deal{*hubspotDeal("D1", "Only", "5000", "")}, nil)
		svc := newTestService(t, crm, newMockCheckout(), nil)

		out, err := svc.Lookup(context.Background(), &LookupInput{Email: "a@b.com"})
		require.NoError(t, err)
		assert.Equal(t, ViewSummary, out.View)
		assert.Equal(t, "D1", out.DealID)
		assert.Equal(t, "a@b.com", out.Email)
	})

	t.Run("several deals sorted by name", func(t *testing.T) {
		crm := newMockCRM()
		crm.On("SearchContactIDByEmail", mock.Anything, "a@b.com").Return("C1", nil)
		crm.On("ListDealIDsForContact", mock.Anything, "C1").Return([]string{"D1", "D2", "D3"}, nil)
		crm.On("BatchReadDeals", mock.Anything, []string{"D1", "D2", "D3"}).Return([]hubspot.Deal{
			*hubspotDeal("D1", "summer", "5000", "0"),
			*hubspotDeal("D2", "Autumn", "5000", "1000"),
			*hubspotDeal("D3", "Spring", "5000", "x"),
		}, nil)
		svc := newTestService(t, crm, newMockCheckout(), nil)

		out, err := svc.Lookup(context.Background(), &LookupInput{Email: "a@b.com"})
		require.NoError(t, err)
		require.Equal(t, ViewSelection, out.View)
		require.Len(t, out.Deals, 3)
		assert.Equal(t, []string{"Autumn", "Spring", "summer"},
			[]string{out.Deals[0].Name, out.Deals[1].Name, out.Deals[2].Name})
		assert.Equal(t, "4000", out.Deals[0].Remaining.Decimal.String())
		assert.False(t, out.Deals[1].Remaining.Valid)
	})

	t.Run("unknown contact", func(t *testing.T) {
		crm := newMockCRM()
		crm.On("SearchContactIDByEmail", mock.Anything, "x@b.com").Return("", hubspot.ErrNotFound)
		svc := newTestService(t, crm, newMockCheckout(), nil)

		_, err := svc.Lookup(context.Background(), &LookupInput{Email: "x@b.com"})
		requireCode(t, err, errors.ErrCodeContactNotFound)
	})

	t.Run("contact without deals", func(t *testing.T) {
		crm := newMockCRM()
		crm.On("SearchContactIDByEmail", mock.Anything, "a@b.com").Return("C1", nil)
		crm.On("ListDealIDsForContact", mock.Anything, "C1").Return([]string{}, nil)
		svc := newTestService(t, crm, newMockCheckout(), nil)

		_, err := svc.Lookup(context.Background(), &LookupInput{Email: "a@b.com"})
		requireCode(t, err, errors.ErrCodeNoDealsForContact)
	})

	t.Run("search failure", func(t *testing.T) {
		crm := newMockCRM()
		crm.On("SearchContactIDByEmail", mock.Anything, "a@b.com").Return("", stderrors.New("timeout"))
		svc := newTestService(t, crm, newMockCheckout(), nil)

		_, err := svc.Lookup(context.Background(), &LookupInput{Email: "a@b.com"})
		requireCode(t, err, errors.ErrCodeCRMAPIError)
	})
}

func TestService_Lookup_NoCRMCalls(t *testing.T) {
	tests := []struct {
		name  string
		input LookupInput
		want  View
	}{
		{"no identifiers", LookupInput{}, ViewLookupForm},
		{"success return", LookupInput{Status: StatusSuccess, DealID: "D1"}, ViewSuccess},
		{"cancelled without deal", LookupInput{Status: StatusCancelled}, ViewCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crm := newMockCRM()
			crm.configured = false
			svc := newTestService(t, crm, newMockCheckout(), nil)

			out, err := svc.Lookup(context.Background(), &tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.View)
			crm.AssertNotCalled(t, "GetDeal", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Lookup_CancelledWithDealShowsBanner(t *testing.T) {
	crm := newMockCRM()
	crm.On("GetDeal", mock.Anything, "D1").Return(hubspotDeal("D1", "X", "10000", "0"), nil)
	svc := newTestService(t, crm, newMockCheckout(), nil)

	out, err := svc.Lookup(context.Background(), &LookupInput{DealID: "D1", Status: StatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, ViewSummary, out.View)
	assert.True(t, out.Summary.Cancelled)
}

func TestService_ToDeal_UsesConfiguredProperties(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Properties.TuitionAmount = "program_price"
	svc := NewService(ServiceDependencies{}, cfg)

	deal := svc.toDeal(&hubspot.Deal{ID: "9", Properties: map[string]string{
		"program_price": "1200",
		"payment_2":     "100, tx-2, 2024-02-01",
	}})

	assert.Equal(t, "Enrollment 9", deal.Name)
	assert.Equal(t, "1200", deal.TuitionAmount)
	assert.Equal(t, "100, tx-2, 2024-02-01", deal.PaymentSlots[1])
}
