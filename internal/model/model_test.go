package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeliveryStatusOrder(t *testing.T) {
	assert.True(t, DeliveryAssigned.IsForwardOf(DeliveryPending))
	assert.True(t, DeliverySettled.IsForwardOf(DeliveryDelivered))
	assert.False(t, DeliveryPending.IsForwardOf(DeliveryDelivered))
	assert.False(t, DeliveryDelivered.IsForwardOf(DeliveryDelivered))
	assert.False(t, DeliveryStatus("lost").IsForwardOf(DeliveryPending))

	assert.True(t, DeliverySettled.Terminal())
	assert.False(t, DeliveryPaymentCollected.Terminal())
	assert.False(t, DeliveryStatus("lost").Valid())
}

func TestValidateSetting(t *testing.T) {
	cases := []struct {
		key   SettingKey
		value string
		ok    bool
	}{
		{SettingVATPercentage, "20", true},
		{SettingVATPercentage, "-1", false},
		{SettingVATPercentage, "abc", false},
		{SettingCurrency, "EUR", true},
		{SettingCurrency, "eur", false},
		{SettingCurrency, "123", false},
		{SettingCurrency, "$$$", false},
		{SettingCurrency, "EURO", false},
		{SettingLanguage, "ar", true},
		{SettingLanguage, "de", false},
		{SettingReceiptPaperSize, "58mm", true},
		{SettingAutoPrint, "yes", false},
		{SettingRestaurantName, "  ", false},
		{SettingReceiptFooter, "", true},
		{SettingKey("theme"), "dark", false},
	}
	for _, tc := range cases {
		err := ValidateSetting(tc.key, tc.value)
		if tc.ok {
			assert.NoError(t, err, "%s=%q", tc.key, tc.value)
		} else {
			assert.Error(t, err, "%s=%q", tc.key, tc.value)
		}
	}
}

func TestSettingsFromMapFallsBack(t *testing.T) {
	s := SettingsFromMap(map[SettingKey]string{
		SettingVATPercentage: "not-a-number",
		SettingAutoPrint:     "true",
		SettingCurrency:      "MAD",
	})
	assert.Zero(t, s.VATPercentage)
	assert.True(t, s.AutoPrint)
	assert.Equal(t, "MAD", s.Currency)
	assert.Equal(t, "80mm", s.ReceiptPaperSize)
	assert.True(t, s.ShowLogoOnReceipt)
}

func TestDefaultSettingsIsACopy(t *testing.T) {
	a := DefaultSettings("Chez Nous")
	a[SettingCurrency] = "GBP"
	b := DefaultSettings("")
	assert.Equal(t, "USD", b[SettingCurrency])
	assert.Equal(t, "Chez Nous", a[SettingRestaurantName])
}

func TestTenantPendingFirstLogin(t *testing.T) {
	now := time.Now()
	assert.True(t, Tenant{Status: TenantInactive}.PendingFirstLogin())
	assert.False(t, Tenant{Status: TenantInactive, ActivatedAt: &now}.PendingFirstLogin())
	assert.False(t, Tenant{Status: TenantActive, ActivatedAt: &now}.PendingFirstLogin())
}

func TestPrincipalRoles(t *testing.T) {
	assert.True(t, Principal{Role: RoleSuperAdmin}.IsSuperAdmin())
	assert.False(t, Principal{Role: RoleSuperAdmin, TenantCode: "X"}.IsSuperAdmin())
	assert.False(t, Role("owner").Valid())
	assert.True(t, PayAfterDelivery.Valid())
	assert.False(t, PaymentMethod("cheque").Valid())
}
