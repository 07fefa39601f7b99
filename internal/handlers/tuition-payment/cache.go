package tuitionpayment

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tuition-checkout/internal/common/database"
	"tuition-checkout/internal/common/payments"
	"tuition-checkout/internal/tuition"
)

// idempotencyNamespace scopes derived Stripe idempotency keys.
var idempotencyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tuition-checkout/checkout-session"))

// RedisSessionCache stores checkout URLs in Redis with a fixed TTL.
type RedisSessionCache struct {
	client *database.RedisClient
	ttl    time.Duration
}

func NewRedisSessionCache(client *database.RedisClient, ttl time.Duration) *RedisSessionCache {
	return &RedisSessionCache{client: client, ttl: ttl}
}

func (c *RedisSessionCache) Get(ctx context.Context, key string) (string, bool, error) {
	return c.client.GetString(ctx, key)
}

func (c *RedisSessionCache) Put(ctx context.Context, key, url string) error {
	return c.client.SetString(ctx, key, url, c.ttl)
}

// chargeKey identifies one exact charge against one state of a deal. Any
// payment recorded on the deal changes totalPaid and so the key.
func chargeKey(dealID string, t tuition.PaymentType, totalPaid decimal.NullDecimal, base decimal.Decimal, email string) string {
	paid := "unknown"
	if totalPaid.Valid {
		paid = centsString(totalPaid.Decimal)
	}
	return fmt.Sprintf("checkout:%s:%s:%s:%s:%s",
		dealID, t, paid, centsString(base), strings.ToLower(email))
}

// idempotencyKey derives the key from every parameter sent to the provider, so
// a reused key always carries an identical request. When reuse is disabled a
// nonce keeps every click a distinct session.
func idempotencyKey(req payments.SessionRequest, nonce string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%q|%q|%d|%q|%q|%q", req.Name, req.Description, req.UnitAmount,
		req.CustomerEmail, req.SuccessURL, req.CancelURL)

	keys := make([]string, 0, len(req.Metadata))
	for k := range req.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%q=%q", k, req.Metadata[k])
	}
	b.WriteString("|" + nonce)

	return uuid.NewSHA1(idempotencyNamespace, []byte(b.String())).String()
}

func centsString(d decimal.Decimal) string {
	return d.Shift(2).Round(0).String()
}
