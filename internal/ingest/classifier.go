package ingest

import (
	"strings"

	"github.com/ignite/affiliate-monitor/internal/source"
)

// Kind is what a file contains, independent of which platform produced it.
type Kind string

const (
	KindOrders  Kind = "orders"
	KindAdSpend Kind = "adspend"
	KindUnknown Kind = "unknown"
)

// Classifier determines a file's platform and kind from filename and header row.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

var shopeeKeywords = []string{"shopee", "affiliate_order", "spx"}
var lazadaKeywords = []string{"lazada", "laz_", "ims_"}
var adSpendKeywords = []string{"facebook", "fb_", "meta", "adspend", "ad_spend", "ads_report", "campaign"}

var adSpendHeaders = []string{"campaign name", "amount spent", "amount spent (thb)", "impressions", "reach"}
var lazadaHeaders = []string{"sku order id", "order_number", "order number", "payout"}
var shopeeHeaders = []string{"order id", "total commission", "รหัสการสั่งซื้อ", "คอมมิชชั่นสินค้าโดยรวม(฿)"}

// Classify determines platform and kind from the filename first, the CSV
// header row second. Filenames are operator-controlled and more reliable
// than marketplace export headers, which change between locales.
func (c *Classifier) Classify(key string, headerRow []string) (source.Platform, Kind) {
	keyLower := strings.ToLower(key)

	for _, kw := range adSpendKeywords {
		if strings.Contains(keyLower, kw) {
			return source.PlatformFacebook, KindAdSpend
		}
	}
	for _, kw := range shopeeKeywords {
		if strings.Contains(keyLower, kw) {
			return source.PlatformShopee, KindOrders
		}
	}
	for _, kw := range lazadaKeywords {
		if strings.Contains(keyLower, kw) {
			return source.PlatformLazada, KindOrders
		}
	}

	adSpendHits := 0
	for _, h := range headerRow {
		hLower := strings.ToLower(strings.TrimSpace(h))
		for _, ah := range adSpendHeaders {
			if hLower == ah {
				adSpendHits++
			}
		}
		for _, lh := range lazadaHeaders {
			if hLower == lh {
				return source.PlatformLazada, KindOrders
			}
		}
	}
	if adSpendHits >= 2 {
		return source.PlatformFacebook, KindAdSpend
	}

	for _, h := range headerRow {
		hLower := strings.ToLower(strings.TrimSpace(h))
		for _, sh := range shopeeHeaders {
			if hLower == sh {
				return source.PlatformShopee, KindOrders
			}
		}
	}

	return "", KindUnknown
}
