package tuitionpayment

import (
	"net/url"
	"strings"

	"tuition-checkout/internal/common/errors"
	"tuition-checkout/internal/common/validation"
)

// Query parameters read by the handler.
const (
	ParamEmail    = "email"
	ParamDealID   = "dealId"
	ParamCheckout = "checkout"
	ParamType     = "type"
	ParamAmount   = "amount"
	ParamStatus   = "status"
)

func GetQuerySchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			ParamEmail: {
				Type:        "string",
				Description: "Contact email used for lookup",
				MaxLength:   validation.IntPtr(254),
				Pattern:     validation.StringPtr(validation.EmailPattern()),
			},
			ParamDealID: {
				Type:        "string",
				Description: "CRM deal identifier",
				MaxLength:   validation.IntPtr(64),
				Pattern:     validation.StringPtr(`^[A-Za-z0-9_-]+$`),
			},
			ParamCheckout: {
				Type:      "string",
				MaxLength: validation.IntPtr(8),
			},
			ParamType: {
				Type:        "string",
				Description: "appfee, deposit, remaining or custom; anything else means remaining",
				MaxLength:   validation.IntPtr(32),
			},
			ParamAmount: {
				Type:        "string",
				Description: "Custom payment amount",
				MaxLength:   validation.IntPtr(32),
			},
			ParamStatus: {
				Type:      "string",
				MaxLength: validation.IntPtr(16),
			},
		},
	}
}

var queryValidator = validation.MustCompile(GetQuerySchema())

// parseQuery trims the known parameters, drops blank ones and validates the
// rest. Unknown parameters are ignored.
func parseQuery(q url.Values) (map[string]string, error) {
	params := map[string]string{}
	doc := map[string]interface{}{}
	for _, name := range []string{ParamEmail, ParamDealID, ParamCheckout, ParamType, ParamAmount, ParamStatus} {
		v := strings.TrimSpace(q.Get(name))
		if v == "" {
			continue
		}
		params[name] = v
		doc[name] = v
	}

	result := queryValidator.Validate(doc)
	if !result.Valid {
		return nil, errors.NewInvalidRequestError(strings.Join(result.GetErrorMessages(), "; "))
	}
	return params, nil
}
