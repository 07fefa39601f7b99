package tuitionpayment

import (
	"context"

	"github.com/stretchr/testify/mock"

	"tuition-checkout/internal/common/hubspot"
	"tuition-checkout/internal/common/payments"
)

// ==========================
// Mock Collaborators
// ==========================

type MockCRM struct {
	mock.Mock
	configured bool
}

func newMockCRM() *MockCRM { return &MockCRM{configured: true} }

func (m *MockCRM) Configured() bool { return m.configured }

func (m *MockCRM) GetDeal(ctx context.Context, dealID string) (*hubspot.Deal, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hubspot.Deal), args.Error(1)
}

func (m *MockCRM) SearchContactIDByEmail(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockCRM) ListDealIDsForContact(ctx context.Context, contactID string) ([]string, error) {
	args := m.Called(ctx, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCRM) BatchReadDeals(ctx context.Context, ids []string) ([]hubspot.Deal, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]hubspot.Deal), args.Error(1)
}

type MockCheckout struct {
	mock.Mock
	configured bool
}

func newMockCheckout() *MockCheckout { return &MockCheckout{configured: true} }

func (m *MockCheckout) Configured() bool { return m.configured }

func (m *MockCheckout) CreateSession(ctx context.Context, req payments.SessionRequest) (*payments.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Session), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockCache) Put(ctx context.Context, key, url string) error {
	args := m.Called(ctx, key, url)
	return args.Error(0)
}

// ==========================
// Fixtures
// ==========================

func hubspotDeal(id, name, tuitionAmount, paid string, slots ...string) *hubspot.Deal {
	props := map[string]string{
		"dealname":          name,
		"tuition_amount":    tuitionAmount,
		"total_amount_paid": paid,
	}
	for i, s := range slots {
		props[[]string{"payment_1", "payment_2", "payment_3", "payment_4", "payment_5"}[i]] = s
	}
	return &hubspot.Deal{ID: id, Properties: props}
}
