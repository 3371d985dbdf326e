package scoring

import (
	"hash/fnv"
	"math"
	"strconv"
	"strings"
)

// Signal is a single named risk indicator extracted from a transaction.
// The extraction order is fixed; explanation ties are broken by it.
type Signal struct {
	Name   string
	Value  any
	Weight float64
}

// Merchant category risk tiers. Unknown categories score zero.
var (
	highRiskCategories = map[string]float64{
		"gambling":         0.4,
		"online_gambling":  0.4,
		"crypto":           0.4,
		"foreign_exchange": 0.4,
	}
	mediumRiskCategories = map[string]float64{
		"electronics": 0.2,
		"jewelry":     0.2,
		"travel":      0.2,
	}
)

// Country and payment-method modifiers. Absent keys contribute zero.
var (
	countryRisk = map[string]float64{
		"NG": 0.15,
		"RU": 0.15,
		"CN": 0.15,
	}
	paymentMethodRisk = map[string]float64{
		"prepaid_card":  0.10,
		"wire_transfer": 0.05,
	}
)

// userVarianceScale bounds the per-user perturbation to [0, 0.3].
// Rounding to three decimals lets the top bucket land on 0.3 exactly.
const userVarianceScale = 0.3

// ExtractSignals derives the ordered risk signal set for a transaction.
// Pure and deterministic: identical input fields always produce an
// identical signal slice, across calls and across process restarts.
func ExtractSignals(in *TransactionInput) []Signal {
	return []Signal{
		{Name: "transaction_amount", Value: in.Amount, Weight: amountTier(in.Amount)},
		{Name: "merchant_category", Value: in.MerchantCategory, Weight: categoryRisk(in.MerchantCategory)},
		{Name: "user_variance", Value: in.UserID, Weight: userVariance(in.UserID)},
		{Name: "country_risk", Value: in.Country, Weight: countryRisk[strings.ToUpper(in.Country)]},
		{Name: "payment_method", Value: in.PaymentMethod, Weight: paymentMethodRisk[strings.ToLower(in.PaymentMethod)]},
	}
}

// amountTier: staged thresholds, highest matched tier only.
func amountTier(amount float64) float64 {
	switch {
	case amount > 1000:
		return 0.3
	case amount > 500:
		return 0.2
	case amount > 100:
		return 0.1
	default:
		return 0
	}
}

// categoryRisk looks up the merchant category tier. Unrecognized
// categories are treated as lowest risk, never an error.
func categoryRisk(category string) float64 {
	c := strings.ToLower(strings.TrimSpace(category))
	if w, ok := highRiskCategories[c]; ok {
		return w
	}
	if w, ok := mediumRiskCategories[c]; ok {
		return w
	}
	return 0
}

// userVariance maps a user ID into a small stable perturbation so that
// different users at the same amount/category do not collapse onto one
// score. FNV-1a over the decimal ID, reduced mod 1000, scaled into
// [0, 0.3]. Reproducible across process restarts, no seeded RNG.
func userVariance(userID int64) float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strconv.FormatInt(userID, 10)))
	bucket := h.Sum64() % 1000
	return round3(float64(bucket) / 1000.0 * userVarianceScale)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
