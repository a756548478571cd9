package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/consultoria-api/internal/models"
)

func TestParseDateLayouts(t *testing.T) {
	cases := map[string]time.Time{
		"2024-03-05":                date(2024, 3, 5),
		"2024/03/05":                date(2024, 3, 5),
		"05/03/2024":                date(2024, 3, 5),
		" 05-03-2024 ":              date(2024, 3, 5),
		"2024-03-05T10:30:00Z":      time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC),
		"2024-03-05T10:30:00-03:00": time.Date(2024, 3, 5, 13, 30, 0, 0, time.UTC),
	}
	for raw, want := range cases {
		got, err := ParseDate(raw)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), "%s: got %s", raw, got)
		assert.Equal(t, time.UTC, got.Location())
	}

	_, err := ParseDate("31/02/2024")
	assert.Error(t, err)
	_, err = ParseDate("amanhã")
	assert.Error(t, err)
}

func TestParseDateSlashFormsAreDayFirst(t *testing.T) {
	got, err := ParseDate("01/02/2024")
	require.NoError(t, err)
	assert.Equal(t, date(2024, 2, 1), got)

	got, err = ParseDate("13/01/2024")
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 13), got)

	_, err = ParseDate("01/13/2024")
	assert.Error(t, err)
}

func TestCoerceDates(t *testing.T) {
	_, err := CoerceRequiredDate("data_inicio_plano", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data_inicio_plano é obrigatório")

	_, err = CoerceRequiredDate("data_inicio_plano", "xx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inválido")

	opt, err := CoerceOptionalDate("data_pagamento", "  ")
	require.NoError(t, err)
	assert.Nil(t, opt)

	opt, err = CoerceOptionalDate("data_pagamento", "2024-01-10")
	require.NoError(t, err)
	require.NotNil(t, opt)
	assert.Equal(t, date(2024, 1, 10), *opt)

	_, err = CoerceOptionalDate("data_pagamento", "10-2024")
	assert.Error(t, err)
}

func TestCoerceEnumsDefaultOnlyWhenAbsent(t *testing.T) {
	assert.Equal(t, models.TrainingStatusNotStarted, CoerceTrainingStatus(""))
	assert.Equal(t, models.TrainingStatusCompleted, CoerceTrainingStatus(" Completado "))
	assert.Equal(t, models.TrainingStatus("Pausado"), CoerceTrainingStatus("Pausado"))

	assert.Equal(t, models.PaymentStatusPending, CoercePaymentStatus(""))
	assert.Equal(t, models.PaymentStatusPaid, CoercePaymentStatus("Pago"))

	assert.Equal(t, models.DiscountTypeAmount, CoerceDiscountType(""))
	assert.Equal(t, models.DiscountTypePercentage, CoerceDiscountType("percentual"))
}

func TestCoerceDiscount(t *testing.T) {
	cases := []struct {
		raw    string
		value  float64
		source DiscountSource
	}{
		{"", 0, DiscountDefaultedAbsent},
		{"10", 10, DiscountParsed},
		{"10.5", 10.5, DiscountParsed},
		{"10,5", 10.5, DiscountParsed},
		{"R$ 1.234,56", 1234.56, DiscountParsed},
		{"1,234.56", 1234.56, DiscountParsed},
		{"15%", 15, DiscountParsed},
		{"abc", 0, DiscountDefaultedInvalid},
		{"-5", 0, DiscountDefaultedInvalid},
		{"1,2,3", 0, DiscountDefaultedInvalid},
	}
	for _, tc := range cases {
		got := CoerceDiscount(tc.raw)
		assert.InDelta(t, tc.value, got.Value, 1e-9, tc.raw)
		assert.Equal(t, tc.source, got.Source, tc.raw)
		assert.Equal(t, tc.source != DiscountParsed, got.Defaulted(), tc.raw)
	}
}

func TestOptionalString(t *testing.T) {
	assert.Nil(t, OptionalString("   "))
	assert.Equal(t, "x", *OptionalString(" x "))
	assert.Nil(t, optionalStringPtr(nil))
	assert.Nil(t, optionalStringPtr(ptrString("")))
}
