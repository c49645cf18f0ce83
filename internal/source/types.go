package source

import "time"

// Platform identifies where a raw record came from.
type Platform string

const (
	PlatformShopee   Platform = "shopee"
	PlatformLazada   Platform = "lazada"
	PlatformFacebook Platform = "facebook"
)

// Origin describes how a record entered the system. Records for the same
// entity can arrive via both a file export and a live API pull, and the
// reconciler needs to know which is which.
type Origin string

const (
	OriginFileImport Origin = "file_import"
	OriginAPI        Origin = "api"
)

// RawRow is one string-keyed row exactly as the import collaborator parsed
// it. Keys vary per source and may be non-ASCII (Thai export headers).
type RawRow map[string]string

// OrderRecord is the canonical shape of one marketplace order observation.
// SKUOrderID is populated for Lazada, where one checkout order id spans
// several product lines that each carry their own SKU order id.
type OrderRecord struct {
	SourcePlatform Platform   `json:"source_platform"`
	Origin         Origin     `json:"origin"`
	OrderID        string     `json:"order_id"`
	SKUOrderID     string     `json:"sku_order_id,omitempty"`
	Commission     float64    `json:"commission"`
	OrderValue     float64    `json:"order_value"`
	OrderDate      *time.Time `json:"order_date"`
	Status         string     `json:"status"`
	SubIDs         []string   `json:"sub_ids"`
	ObservedAt     time.Time  `json:"observed_at"`
}

// IdentityKey returns the stable identity of the underlying order line.
// Lazada records key on the SKU order id so that distinct product lines of
// one checkout are counted as separate units.
func (o *OrderRecord) IdentityKey() string {
	id := o.OrderID
	if o.SourcePlatform == PlatformLazada && o.SKUOrderID != "" {
		id = o.SKUOrderID
	}
	return string(o.SourcePlatform) + ":" + id
}

// CheckoutKey returns the logical checkout-level identity, which groups all
// SKU lines of one Lazada order together for commission rollups.
func (o *OrderRecord) CheckoutKey() string {
	return string(o.SourcePlatform) + ":" + o.OrderID
}

// AdSpendRecord is the canonical shape of one ad-platform spend observation.
// SubID is empty when it could not be inferred from the campaign naming.
type AdSpendRecord struct {
	SourcePlatform Platform   `json:"source_platform"`
	Origin         Origin     `json:"origin"`
	CampaignName   string     `json:"campaign_name"`
	AdSetName      string     `json:"ad_set_name,omitempty"`
	AdName         string     `json:"ad_name,omitempty"`
	Spend          float64    `json:"spend"`
	Impressions    int64      `json:"impressions"`
	Clicks         int64      `json:"clicks"`
	Reach          int64      `json:"reach"`
	Date           *time.Time `json:"date"`
	SubID          string     `json:"sub_id,omitempty"`
	ObservedAt     time.Time  `json:"observed_at"`
}

// IdentityKey identifies one ad observation by campaign/ad-set/ad name plus
// the report date, which is how ad-platform exports are keyed.
func (a *AdSpendRecord) IdentityKey() string {
	d := ""
	if a.Date != nil {
		d = a.Date.Format("2006-01-02")
	}
	return string(a.SourcePlatform) + ":" + a.CampaignName + "|" + a.AdSetName + "|" + a.AdName + "|" + d
}

// NameBlob concatenates the campaign naming fields for sub-id matching.
func (a *AdSpendRecord) NameBlob() string {
	return a.CampaignName + " " + a.AdSetName + " " + a.AdName
}
