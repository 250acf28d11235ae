package sync

import "strings"

// ---------------------------------------------------------------------------
// PlatformCode represents an external commerce or advertising platform
// ---------------------------------------------------------------------------

// PlatformCode represents an external commerce or advertising platform
type PlatformCode string

const (
	// PlatformShopify represents Shopify stores
	PlatformShopify PlatformCode = "SHOPIFY"
	// PlatformNuvemshop represents Nuvemshop (Tiendanube) stores
	PlatformNuvemshop PlatformCode = "NUVEMSHOP"
	// PlatformCartpanda represents Cartpanda stores
	PlatformCartpanda PlatformCode = "CARTPANDA"
	// PlatformYampi represents Yampi stores
	PlatformYampi PlatformCode = "YAMPI"
	// PlatformFacebookAds represents the Facebook Marketing API
	PlatformFacebookAds PlatformCode = "FACEBOOK_ADS"
	// PlatformGoogleAds represents the Google Ads API
	PlatformGoogleAds PlatformCode = "GOOGLE_ADS"
	// PlatformReportana represents the Reportana recovery platform
	PlatformReportana PlatformCode = "REPORTANA"
)

// AllPlatforms returns every supported platform in declaration order.
// The orchestrator relies on this ordering for stable result aggregation.
func AllPlatforms() []PlatformCode {
	return []PlatformCode{
		PlatformShopify,
		PlatformNuvemshop,
		PlatformCartpanda,
		PlatformYampi,
		PlatformFacebookAds,
		PlatformGoogleAds,
		PlatformReportana,
	}
}

// ParsePlatform converts a case-insensitive platform name into a
// PlatformCode. It accepts both the canonical codes and the lowercase
// URL form used by the API ("facebook_ads").
func ParsePlatform(s string) (PlatformCode, error) {
	code := PlatformCode(strings.ToUpper(s))
	if !code.IsValid() {
		return "", ErrInvalidPlatform
	}
	return code, nil
}

// IsValid returns true if the platform code is valid
func (c PlatformCode) IsValid() bool {
	switch c {
	case PlatformShopify, PlatformNuvemshop, PlatformCartpanda, PlatformYampi,
		PlatformFacebookAds, PlatformGoogleAds, PlatformReportana:
		return true
	default:
		return false
	}
}

// String returns the string representation of PlatformCode
func (c PlatformCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the platform
func (c PlatformCode) DisplayName() string {
	switch c {
	case PlatformShopify:
		return "Shopify"
	case PlatformNuvemshop:
		return "Nuvemshop"
	case PlatformCartpanda:
		return "Cartpanda"
	case PlatformYampi:
		return "Yampi"
	case PlatformFacebookAds:
		return "Facebook Ads"
	case PlatformGoogleAds:
		return "Google Ads"
	case PlatformReportana:
		return "Reportana"
	default:
		return string(c)
	}
}

// IsAdPlatform returns true if the platform produces ad metrics rather
// than orders.
func (c PlatformCode) IsAdPlatform() bool {
	return c == PlatformFacebookAds || c == PlatformGoogleAds
}
