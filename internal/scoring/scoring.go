// Package scoring implements transaction fraud scoring.
//
// Every transaction is evaluated against a fixed set of weighted risk
// signals: amount tier, merchant category, per-user variance, country,
// and payment method. Scores range from 0.0 (safe) to 1.0 (high risk)
// and map onto a decision through two thresholds. The explanation
// returned with each score is built from the same signal values the
// score was reduced from, so it can never disagree with the decision.
package scoring

import (
	"errors"
	"strings"
	"time"
)

// Decision is the verdict for a scored transaction.
type Decision string

const (
	DecisionAllow   Decision = "ALLOW"
	DecisionFlag    Decision = "FLAG"
	DecisionDecline Decision = "DECLINE"
)

// Default thresholds for decisions.
const (
	DefaultFlagThreshold    = 0.7
	DefaultDeclineThreshold = 0.9
)

// ModelVersion tags each explanation with the scoring logic revision.
const ModelVersion = "heuristic-v1"

// Validation errors for transaction input. The scoring engine itself never
// fails; these are returned by Validate for callers that re-check input at
// the boundary.
var (
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrAmountTooLarge  = errors.New("amount exceeds maximum allowed")
	ErrMissingMerchant = errors.New("merchant_id is required")
	ErrFutureTimestamp = errors.New("timestamp cannot be in the future")
	ErrInvalidDecision = errors.New("invalid decision value")
)

// ParseDecision validates a decision string (e.g. a query filter).
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(strings.ToUpper(s)); d {
	case DecisionAllow, DecisionFlag, DecisionDecline:
		return d, nil
	default:
		return "", ErrInvalidDecision
	}
}

// TransactionInput is a caller-supplied transaction record to be scored.
type TransactionInput struct {
	UserID           int64     `json:"user_id" binding:"required,gt=0"`
	Amount           float64   `json:"amount" binding:"required"`
	MerchantID       string    `json:"merchant_id" binding:"required,max=100"`
	MerchantCategory string    `json:"merchant_category,omitempty"`
	Currency         string    `json:"currency,omitempty"`
	Country          string    `json:"country,omitempty"`
	PaymentMethod    string    `json:"payment_method,omitempty"`
	DeviceID         string    `json:"device_id,omitempty"`
	IPAddress        string    `json:"ip_address,omitempty"`
	Timestamp        time.Time `json:"timestamp,omitempty"`
}

// Normalize fills defaults and canonicalizes codes: currency and country
// are uppercased, currency defaults to USD, payment method to credit_card,
// and a zero timestamp becomes the submission time.
func (in *TransactionInput) Normalize(now time.Time) {
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = "USD"
	}
	in.Country = strings.ToUpper(strings.TrimSpace(in.Country))
	if in.PaymentMethod == "" {
		in.PaymentMethod = "credit_card"
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = now.UTC()
	}
}

// Validate re-checks the invariants the HTTP boundary enforces. maxAmount
// is the configured ceiling; now anchors the future-timestamp check.
func (in *TransactionInput) Validate(maxAmount float64, now time.Time) error {
	if in.Amount <= 0 {
		return ErrInvalidAmount
	}
	if in.Amount > maxAmount {
		return ErrAmountTooLarge
	}
	if strings.TrimSpace(in.MerchantID) == "" {
		return ErrMissingMerchant
	}
	if !in.Timestamp.IsZero() && in.Timestamp.After(now.Add(time.Minute)) {
		return ErrFutureTimestamp
	}
	return nil
}

// Polarity tags whether a feature pushed the score toward fraud or not.
type Polarity string

const (
	PolarityFraud      Polarity = "fraud"
	PolarityLegitimate Polarity = "legitimate"
)

// FeatureContribution is one ranked entry in an explanation.
type FeatureContribution struct {
	Feature  string   `json:"feature_name"`
	Value    any      `json:"feature_value"`
	Weight   float64  `json:"weight"`
	Polarity Polarity `json:"contribution"`
}

// Explanation is the ranked list of factors behind a score.
type Explanation struct {
	TopFeatures  []FeatureContribution `json:"top_features"`
	Threshold    float64               `json:"threshold"`
	ModelVersion string                `json:"model_version"`
}

// ScoredTransaction is the immutable result of one scoring call.
type ScoredTransaction struct {
	ID           string           `json:"transaction_id"`
	Input        TransactionInput `json:"transaction"`
	Score        float64          `json:"score"`
	Decision     Decision         `json:"decision"`
	Explanation  *Explanation     `json:"explanation"`
	CreatedAt    time.Time        `json:"timestamp"`
	ProcessingMS float64          `json:"processing_time_ms"`
}
