package source

import "strings"

// CanonicalField is a normalized field name used across all import sources.
type CanonicalField string

const (
	FieldOrderID     CanonicalField = "order_id"
	FieldSKUOrderID  CanonicalField = "sku_order_id"
	FieldCommission  CanonicalField = "commission"
	FieldOrderValue  CanonicalField = "order_value"
	FieldOrderDate   CanonicalField = "order_date"
	FieldStatus      CanonicalField = "status"
	FieldSubID       CanonicalField = "sub_id"
	FieldCampaign    CanonicalField = "campaign_name"
	FieldAdSet       CanonicalField = "ad_set_name"
	FieldAdName      CanonicalField = "ad_name"
	FieldSpend       CanonicalField = "spend"
	FieldImpressions CanonicalField = "impressions"
	FieldClicks      CanonicalField = "clicks"
	FieldReach       CanonicalField = "reach"
	FieldDate        CanonicalField = "date"
)

// FieldMap lists candidate raw keys per canonical field, in lookup order.
// The first key present (and non-empty) in a row wins. Raw exports use a
// mix of English and Thai headers depending on the account locale, so both
// are listed.
type FieldMap map[CanonicalField][]string

// subIDFields are the canonical multi-valued sub-id slots. They are
// collected in order into an ordered set, duplicates removed.
var shopeeSubIDKeys = []string{"sub_id", "sub_id1", "sub_id2", "sub_id3", "sub_id4", "sub_id5", "Sub_id1", "Sub_id2", "Sub_id3", "Sub_id4", "Sub_id5"}
var lazadaSubIDKeys = []string{"sub_id", "sub_id1", "sub_id2", "sub_id3", "sub_id4", "sub_id5", "sub_id6", "aff_sub", "aff_sub1", "aff_sub2", "aff_sub3"}

// shopeeOrderFields maps Shopee affiliate export headers.
var shopeeOrderFields = FieldMap{
	FieldOrderID:    {"order_id", "Order ID", "รหัสการสั่งซื้อ", "หมายเลขคำสั่งซื้อ"},
	FieldCommission: {"total_commission", "Total Commission", "commission", "คอมมิชชั่นสินค้าโดยรวม(฿)", "คอมมิชชั่นคำสั่งซื้อทั้งหมด(฿)"},
	FieldOrderValue: {"order_value", "Order Value", "purchase_value", "มูลค่าซื้อ(฿)", "ยอดสั่งซื้อ"},
	FieldOrderDate:  {"order_time", "Order Time", "purchase_time", "เวลาที่สั่งซื้อ", "เวลาการสั่งซื้อสำเร็จ"},
	FieldStatus:     {"order_status", "Order Status", "status", "สถานะการสั่งซื้อ", "สถานะ"},
}

// lazadaOrderFields maps Lazada affiliate export headers. Lazada reports at
// SKU-line granularity: the checkout order id repeats across lines while the
// SKU order id is unique per line.
var lazadaOrderFields = FieldMap{
	FieldOrderID:    {"order_number", "Order Number", "orderNumber", "หมายเลขคำสั่งซื้อ"},
	FieldSKUOrderID: {"sku_order_id", "Sku Order ID", "item_id", "checkout_id"},
	FieldCommission: {"payout", "Payout", "commission", "estimated_payout", "ค่าคอมมิชชั่น"},
	FieldOrderValue: {"order_amount", "Order Amount", "item_price", "ยอดสั่งซื้อ"},
	FieldOrderDate:  {"order_time", "Order Time", "conversion_time", "เวลาที่สั่งซื้อ"},
	FieldStatus:     {"order_status", "Order Status", "status", "สถานะ"},
}

// facebookAdFields maps Facebook Ads report headers.
var facebookAdFields = FieldMap{
	FieldCampaign:    {"campaign_name", "Campaign name", "Campaign Name", "ชื่อแคมเปญ"},
	FieldAdSet:       {"adset_name", "Ad set name", "Ad Set Name", "ชื่อชุดโฆษณา"},
	FieldAdName:      {"ad_name", "Ad name", "Ad Name", "ชื่อโฆษณา"},
	FieldSpend:       {"spend", "Amount spent", "Amount spent (THB)", "amount_spent", "จำนวนเงินที่ใช้จ่าย (THB)"},
	FieldImpressions: {"impressions", "Impressions", "การแสดงผล"},
	FieldClicks:      {"clicks", "Clicks (all)", "link_clicks", "คลิก (ทั้งหมด)"},
	FieldReach:       {"reach", "Reach", "การเข้าถึง"},
	FieldDate:        {"date", "Day", "date_start", "reporting_starts", "วัน"},
	FieldSubID:       {"sub_id", "subid", "tracking_tag"},
}

// orderFieldsFor returns the field map for a marketplace source.
func orderFieldsFor(platform Platform) FieldMap {
	switch platform {
	case PlatformLazada:
		return lazadaOrderFields
	default:
		return shopeeOrderFields
	}
}

// subIDKeysFor returns the ordered sub-id key list for a marketplace source.
func subIDKeysFor(platform Platform) []string {
	if platform == PlatformLazada {
		return lazadaSubIDKeys
	}
	return shopeeSubIDKeys
}

// lookup resolves a canonical field against a raw row using the candidate
// key list. Keys are tried verbatim first, then case-insensitively, so a
// row exported with unexpected header casing still resolves.
func (fm FieldMap) lookup(row RawRow, field CanonicalField) string {
	candidates := fm[field]
	for _, key := range candidates {
		if v, ok := row[key]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	for _, key := range candidates {
		lower := strings.ToLower(key)
		for k, v := range row {
			if strings.ToLower(k) == lower && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}
