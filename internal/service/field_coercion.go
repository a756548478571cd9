package service

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/consultoria-api/internal/models"
)

var (
	errEmptyDate   = errors.New("data vazia")
	errInvalidDate = errors.New("data inválida")
)

// dateOnlyLayouts are calendar-date formats normalised to UTC midnight.
var dateOnlyLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
}

// instantLayouts carry a time of day and keep the instant, expressed in UTC.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate parses a calendar date supplied as text by an external source.
func ParseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, errEmptyDate
	}
	for _, layout := range dateOnlyLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", errInvalidDate, value)
}

// CoerceRequiredDate parses a mandatory date; absence and malformed text are both failures.
func CoerceRequiredDate(field, raw string) (time.Time, error) {
	t, err := ParseDate(raw)
	if err != nil {
		if errors.Is(err, errEmptyDate) {
			return time.Time{}, fmt.Errorf("%s é obrigatório", field)
		}
		return time.Time{}, fmt.Errorf("%s inválido: %q", field, strings.TrimSpace(raw))
	}
	return t, nil
}

// CoerceOptionalDate returns nil for an absent value and an error for malformed text.
func CoerceOptionalDate(field, raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("%s inválido: %q", field, strings.TrimSpace(raw))
	}
	return &t, nil
}

// OptionalString normalises empty text to nil.
func OptionalString(raw string) *string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	return &value
}

// optionalStringPtr is OptionalString for values that may already be absent.
func optionalStringPtr(raw *string) *string {
	if raw == nil {
		return nil
	}
	return OptionalString(*raw)
}

// CoerceTrainingStatus applies the NotStarted default to absent values. Present values
// outside the known set pass through unchanged.
func CoerceTrainingStatus(raw string) models.TrainingStatus {
	value := strings.TrimSpace(raw)
	if value == "" {
		return models.TrainingStatusNotStarted
	}
	return models.TrainingStatus(value)
}

// CoercePaymentStatus applies the Pending default to absent values.
func CoercePaymentStatus(raw string) models.PaymentStatus {
	value := strings.TrimSpace(raw)
	if value == "" {
		return models.PaymentStatusPending
	}
	return models.PaymentStatus(value)
}

// CoerceDiscountType applies the Amount default to absent values.
func CoerceDiscountType(raw string) models.DiscountType {
	value := strings.TrimSpace(raw)
	if value == "" {
		return models.DiscountTypeAmount
	}
	return models.DiscountType(value)
}

// DiscountSource records how a discount value was obtained.
type DiscountSource int

const (
	// DiscountParsed means the input held a valid non-negative number.
	DiscountParsed DiscountSource = iota
	// DiscountDefaultedAbsent means the input was empty and 0 was used.
	DiscountDefaultedAbsent
	// DiscountDefaultedInvalid means the input was malformed or negative and 0 was used.
	DiscountDefaultedInvalid
)

// Discount is the coerced discount together with its provenance.
type Discount struct {
	Value  float64
	Source DiscountSource
	Raw    string
}

// Defaulted reports whether the value is a fallback rather than parsed input.
func (d Discount) Defaulted() bool {
	return d.Source != DiscountParsed
}

// CoerceDiscount parses a discount written as "10", "10.5", "10,5" or "R$ 1.234,56".
func CoerceDiscount(raw string) Discount {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Discount{Value: 0, Source: DiscountDefaultedAbsent}
	}

	value, ok := parseDecimal(trimmed)
	if !ok || value < 0 {
		return Discount{Value: 0, Source: DiscountDefaultedInvalid, Raw: trimmed}
	}
	return Discount{Value: value, Source: DiscountParsed, Raw: trimmed}
}

func parseDecimal(raw string) (float64, bool) {
	s := strings.TrimPrefix(raw, "R$")
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0 && lastDot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return 0, false
		}
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
