package classify

import (
	"fmt"
	"strings"
)

// Error types, ordered roughly by remediability.
const (
	TypeTemporal    = "temporal"    // network, timeout, rate limit, 5xx
	TypeRecoverable = "recoverable" // address/product issues an operator can fix
	TypeCritical    = "critical"    // auth, payment, suspension: never auto-retried
	TypeUnknown     = "unknown"
)

// Failure is the raw material of a classification: whatever the provider
// call produced.
type Failure struct {
	HTTPStatus int    `json:"http_status,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Classification is a value type embedded into retry jobs and alerts,
// never persisted on its own.
type Classification struct {
	ErrorCode         string `json:"error_code"`
	ErrorType         string `json:"error_type"`
	Retryable         bool   `json:"retryable"`
	Description       string `json:"description"`
	RecommendedAction string `json:"recommended_action"`
}

type Classifier struct {
	codes    map[string]CodeRule
	keywords []KeywordRule
}

func New(rules RulesConfig) *Classifier {
	codes := make(map[string]CodeRule, len(rules.Codes))
	for _, r := range rules.Codes {
		codes[strings.ToUpper(strings.TrimSpace(r.Code))] = r
	}
	return &Classifier{codes: codes, keywords: rules.Keywords}
}

// Classify maps a raw failure to the taxonomy. It is total and
// deterministic: identical input always yields identical output, and it
// never panics. Priority: HTTP status, exact provider code, message
// keywords, then the fail-safe fallback.
func (c *Classifier) Classify(f Failure) Classification {
	if f.HTTPStatus >= 500 {
		return Classification{
			ErrorCode:         fmt.Sprintf("HTTP_%d", f.HTTPStatus),
			ErrorType:         TypeTemporal,
			Retryable:         true,
			Description:       "provider server error",
			RecommendedAction: "automatic retry",
		}
	}
	if f.HTTPStatus == 429 {
		return Classification{
			ErrorCode:         "RATE_LIMITED",
			ErrorType:         TypeTemporal,
			Retryable:         true,
			Description:       "provider rate limit hit",
			RecommendedAction: "automatic retry",
		}
	}
	if f.HTTPStatus == 401 || f.HTTPStatus == 403 {
		return Classification{
			ErrorCode:         "AUTH_FAILED",
			ErrorType:         TypeCritical,
			Retryable:         false,
			Description:       "provider rejected our credentials",
			RecommendedAction: "rotate the provider API key",
		}
	}

	if code := strings.ToUpper(strings.TrimSpace(f.Code)); code != "" {
		if rule, ok := c.codes[code]; ok {
			return Classification{
				ErrorCode:         rule.Code,
				ErrorType:         rule.Type,
				Retryable:         rule.Retryable,
				Description:       rule.Description,
				RecommendedAction: rule.Action,
			}
		}
	}

	message := strings.ToLower(f.Message)
	if message != "" {
		for _, rule := range c.keywords {
			for _, kw := range rule.Keywords {
				if strings.Contains(message, kw) {
					return Classification{
						ErrorCode:         keywordCode(rule.Type),
						ErrorType:         rule.Type,
						Retryable:         rule.Retryable,
						Description:       f.Message,
						RecommendedAction: rule.Action,
					}
				}
			}
		}
	}

	// Unknown errors never auto-retry.
	return Classification{
		ErrorCode:         "UNKNOWN_ERROR",
		ErrorType:         TypeCritical,
		Retryable:         false,
		Description:       f.Message,
		RecommendedAction: "manual investigation required",
	}
}

func keywordCode(errorType string) string {
	switch errorType {
	case TypeTemporal:
		return "NETWORK_ERROR"
	case TypeRecoverable:
		return "ORDER_DATA_ISSUE"
	case TypeCritical:
		return "PAYMENT_ISSUE"
	default:
		return "UNKNOWN_ERROR"
	}
}
