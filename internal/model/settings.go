package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SettingKey enumerates the tenant settings the application understands.
type SettingKey string

const (
	SettingRestaurantName    SettingKey = "restaurant_name"
	SettingLogoPath          SettingKey = "logo_path"
	SettingVATPercentage     SettingKey = "vat_percentage"
	SettingCurrency          SettingKey = "currency"
	SettingLanguage          SettingKey = "language"
	SettingReceiptPaperSize  SettingKey = "receipt_paper_size"
	SettingReceiptFooter     SettingKey = "receipt_footer"
	SettingAutoPrint         SettingKey = "auto_print"
	SettingShowLogoOnReceipt SettingKey = "show_logo_on_receipt"
)

// settingDefaults are written into a freshly provisioned tenant store.
var settingDefaults = map[SettingKey]string{
	SettingRestaurantName:    "My Restaurant",
	SettingLogoPath:          "",
	SettingVATPercentage:     "0",
	SettingCurrency:          "USD",
	SettingLanguage:          "en",
	SettingReceiptPaperSize:  "80mm",
	SettingReceiptFooter:     "Thank you for your visit!",
	SettingAutoPrint:         "false",
	SettingShowLogoOnReceipt: "true",
}

// DefaultSettings returns a copy of the seeded key/value pairs with the
// restaurant name filled in.
func DefaultSettings(restaurantName string) map[SettingKey]string {
	out := make(map[SettingKey]string, len(settingDefaults))
	for k, v := range settingDefaults {
		out[k] = v
	}
	if strings.TrimSpace(restaurantName) != "" {
		out[SettingRestaurantName] = strings.TrimSpace(restaurantName)
	}
	return out
}

// KnownSetting reports whether key is a recognized setting.
func KnownSetting(key string) bool {
	_, ok := settingDefaults[SettingKey(key)]
	return ok
}

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidateSetting checks a single value against the rules of its key.
func ValidateSetting(key SettingKey, value string) error {
	switch key {
	case SettingRestaurantName:
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("restaurant_name must not be empty")
		}
	case SettingVATPercentage:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || f > 100 {
			return fmt.Errorf("vat_percentage must be a number between 0 and 100")
		}
	case SettingCurrency:
		if !currencyCode.MatchString(value) {
			return fmt.Errorf("currency must be a 3-letter upper-case code")
		}
	case SettingLanguage:
		switch value {
		case "en", "ar", "fr":
		default:
			return fmt.Errorf("language must be one of en, ar, fr")
		}
	case SettingReceiptPaperSize:
		switch value {
		case "58mm", "80mm", "A4":
		default:
			return fmt.Errorf("receipt_paper_size must be one of 58mm, 80mm, A4")
		}
	case SettingAutoPrint, SettingShowLogoOnReceipt:
		if value != "true" && value != "false" {
			return fmt.Errorf("%s must be true or false", key)
		}
	case SettingLogoPath, SettingReceiptFooter:
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// Settings is the typed view over the flat key/value store.
type Settings struct {
	RestaurantName    string  `json:"restaurant_name"`
	LogoPath          string  `json:"logo_path"`
	VATPercentage     float64 `json:"vat_percentage"`
	Currency          string  `json:"currency"`
	Language          string  `json:"language"`
	ReceiptPaperSize  string  `json:"receipt_paper_size"`
	ReceiptFooter     string  `json:"receipt_footer"`
	AutoPrint         bool    `json:"auto_print"`
	ShowLogoOnReceipt bool    `json:"show_logo_on_receipt"`
}

// SettingsFromMap builds the typed view, falling back to defaults for
// missing or unparsable values.
func SettingsFromMap(m map[SettingKey]string) Settings {
	get := func(k SettingKey) string {
		if v, ok := m[k]; ok {
			return v
		}
		return settingDefaults[k]
	}
	vat, err := strconv.ParseFloat(get(SettingVATPercentage), 64)
	if err != nil {
		vat = 0
	}
	return Settings{
		RestaurantName:    get(SettingRestaurantName),
		LogoPath:          get(SettingLogoPath),
		VATPercentage:     vat,
		Currency:          get(SettingCurrency),
		Language:          get(SettingLanguage),
		ReceiptPaperSize:  get(SettingReceiptPaperSize),
		ReceiptFooter:     get(SettingReceiptFooter),
		AutoPrint:         get(SettingAutoPrint) == "true",
		ShowLogoOnReceipt: get(SettingShowLogoOnReceipt) == "true",
	}
}
