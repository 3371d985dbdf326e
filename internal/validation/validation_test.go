package validation

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIsValidMerchantID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"merch_123", true},
		{"shop-42.eu", true},
		{"A", true},
		{strings.Repeat("a", 100), true},

		{"", false},
		{strings.Repeat("a", 101), false},
		{"merch 123", false},
		{"merch/123", false},
		{"merch\x00123", false},
	}

	for _, tt := range tests {
		if got := IsValidMerchantID(tt.id); got != tt.valid {
			t.Errorf("IsValidMerchantID(%q) = %v, want %v", tt.id, got, tt.valid)
		}
	}
}

func TestIsValidCurrency(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"USD", true},
		{"eur", true},
		{"GbP", true},

		{"", false},
		{"US", false},
		{"USDA", false},
		{"U$D", false},
	}

	for _, tt := range tests {
		if got := IsValidCurrency(tt.code); got != tt.valid {
			t.Errorf("IsValidCurrency(%q) = %v, want %v", tt.code, got, tt.valid)
		}
	}
}

func TestIsValidCountry(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"US", true},
		{"ng", true},

		{"", false},
		{"USA", false},
		{"U", false},
		{"1A", false},
	}

	for _, tt := range tests {
		if got := IsValidCountry(tt.code); got != tt.valid {
			t.Errorf("IsValidCountry(%q) = %v, want %v", tt.code, got, tt.valid)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"  hello  ", 100, "hello"},
		{"hello\x00world", 100, "helloworld"},
		{"abcdef", 3, "abc"},
		{"", 100, ""},
	}

	for _, tt := range tests {
		if got := SanitizeString(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("SanitizeString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	errs := Validate(
		Required("merchant_id", ""),
		ValidCurrency("currency", "DOLLARS"),
		ValidCountry("country", "US"),
	)

	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}
	if errs[0].Field != "merchant_id" {
		t.Errorf("first error field = %q, want merchant_id", errs[0].Field)
	}
	if errs[1].Field != "currency" {
		t.Errorf("second error field = %q, want currency", errs[1].Field)
	}
	if !strings.Contains(errs.Error(), "merchant_id") {
		t.Errorf("Error() = %q, expected to mention merchant_id", errs.Error())
	}
}

func TestValidateAllPass(t *testing.T) {
	errs := Validate(
		Required("merchant_id", "merch_1"),
		ValidMerchantID("merchant_id", "merch_1"),
		ValidCurrency("currency", "USD"),
		MaxLength("device_id", "dev_1", 64),
	)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestRequestSizeMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestSizeMiddleware(64))
	router.POST("/echo", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too_large"})
			return
		}
		c.JSON(http.StatusOK, body)
	})

	small := bytes.NewBufferString(`{"a":1}`)
	req := httptest.NewRequest("POST", "/echo", small)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("small body: status = %d, want 200", w.Code)
	}

	big := bytes.NewBufferString(`{"a":"` + strings.Repeat("x", 200) + `"}`)
	req = httptest.NewRequest("POST", "/echo", big)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("big body: status = %d, want 413", w.Code)
	}
}
