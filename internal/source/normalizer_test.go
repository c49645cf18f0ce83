package source

import (
	"testing"
	"time"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{name: "Plain number", raw: "123.45", want: 123.45},
		{name: "Thai baht symbol", raw: "฿1,234.50", want: 1234.5},
		{name: "Dollar with thousands", raw: "$12,000", want: 12000},
		{name: "Trailing currency", raw: "99.00 THB", want: 99},
		{name: "Negative", raw: "-45.5", want: -45.5},
		{name: "Parenthesized negative", raw: "(200)", want: -200},
		{name: "Garbage", raw: "abc", want: 0},
		{name: "Empty", raw: "", want: 0},
		{name: "Whitespace only", raw: "   ", want: 0},
		{name: "Dash placeholder", raw: "-", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseAmount(tt.raw); got != tt.want {
				t.Errorf("ParseAmount(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantNil  bool
		wantYear int
		wantMon  time.Month
		wantDay  int
	}{
		{name: "Marketplace format", raw: "25/12/2024 14:30:00", wantYear: 2024, wantMon: time.December, wantDay: 25},
		{name: "Marketplace date only", raw: "05/01/2025", wantYear: 2025, wantMon: time.January, wantDay: 5},
		{name: "ISO with time", raw: "2024-06-15 09:00:00", wantYear: 2024, wantMon: time.June, wantDay: 15},
		{name: "ISO date only", raw: "2024-06-15", wantYear: 2024, wantMon: time.June, wantDay: 15},
		{name: "RFC3339 fallback", raw: "2024-03-01T08:00:00Z", wantYear: 2024, wantMon: time.March, wantDay: 1},
		{name: "Ancient year rejected", raw: "01/01/1999", wantNil: true},
		{name: "Garbage", raw: "not a date", wantNil: true},
		{name: "Empty", raw: "", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.raw)
			if tt.wantNil {
				if got != nil {
					t.Errorf("ParseDate(%q) = %v, want nil", tt.raw, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ParseDate(%q) = nil, want a date", tt.raw)
			}
			if got.Year() != tt.wantYear || got.Month() != tt.wantMon || got.Day() != tt.wantDay {
				t.Errorf("ParseDate(%q) = %v, want %04d-%02d-%02d", tt.raw, got, tt.wantYear, tt.wantMon, tt.wantDay)
			}
		})
	}
}

func TestNormalizeOrdersShopee(t *testing.T) {
	rows := []RawRow{
		{
			"order_id":         "SP-1001",
			"total_commission": "฿150.25",
			"order_value":      "2,500.00",
			"order_time":       "20/11/2024 10:15:00",
			"order_status":     "Completed",
			"sub_id1":          "july_promo",
			"sub_id2":          "july_promo", // duplicate must collapse
			"sub_id3":          "ig_story",
		},
		{
			// Thai headers resolve through the same field map
			"รหัสการสั่งซื้อ":            "SP-1002",
			"คอมมิชชั่นสินค้าโดยรวม(฿)": "75.50",
			"เวลาที่สั่งซื้อ":           "21/11/2024",
			"สถานะการสั่งซื้อ":          "รอดำเนินการ",
		},
		{
			// no order id at all: dropped
			"total_commission": "10.00",
		},
	}

	records := NormalizeOrders(PlatformShopee, OriginFileImport, rows)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.OrderID != "SP-1001" {
		t.Errorf("OrderID = %s, want SP-1001", first.OrderID)
	}
	if first.Commission != 150.25 {
		t.Errorf("Commission = %v, want 150.25", first.Commission)
	}
	if first.OrderValue != 2500 {
		t.Errorf("OrderValue = %v, want 2500", first.OrderValue)
	}
	if first.OrderDate == nil || first.OrderDate.Day() != 20 {
		t.Errorf("OrderDate = %v, want day 20", first.OrderDate)
	}
	if len(first.SubIDs) != 2 || first.SubIDs[0] != "july_promo" || first.SubIDs[1] != "ig_story" {
		t.Errorf("SubIDs = %v, want [july_promo ig_story]", first.SubIDs)
	}

	second := records[1]
	if second.OrderID != "SP-1002" {
		t.Errorf("Thai header OrderID = %s, want SP-1002", second.OrderID)
	}
	if second.Commission != 75.5 {
		t.Errorf("Thai header Commission = %v, want 75.5", second.Commission)
	}
}

func TestNormalizeOrdersLazadaSKUGranularity(t *testing.T) {
	rows := []RawRow{
		{"order_number": "LZ-500", "sku_order_id": "LZ-500-A", "payout": "30", "order_time": "2024-11-20"},
		{"order_number": "LZ-500", "sku_order_id": "LZ-500-B", "payout": "45", "order_time": "2024-11-20"},
	}

	records := NormalizeOrders(PlatformLazada, OriginFileImport, rows)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].IdentityKey() == records[1].IdentityKey() {
		t.Error("distinct SKU lines must have distinct identity keys")
	}
	if records[0].CheckoutKey() != records[1].CheckoutKey() {
		t.Error("SKU lines of one checkout must share a checkout key")
	}
}

func TestNormalizeAdSpend(t *testing.T) {
	rows := []RawRow{
		{
			"campaign_name": "Beauty TH | sub id: july_promo",
			"adset_name":    "lookalike 1%",
			"spend":         "1,200.50",
			"impressions":   "50000",
			"clicks":        "800",
			"reach":         "32000",
			"date":          "2024-11-20",
		},
		{
			"campaign_name": "Random naming no tag here",
			"spend":         "300",
			"date":          "2024-11-20",
		},
		{
			// neither a campaign name nor spend: dropped
			"impressions": "100",
		},
	}

	records := NormalizeAdSpend(PlatformFacebook, OriginAPI, rows)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].SubID != "july_promo" {
		t.Errorf("SubID = %q, want july_promo", records[0].SubID)
	}
	if records[0].Spend != 1200.5 {
		t.Errorf("Spend = %v, want 1200.5", records[0].Spend)
	}
	if records[1].SubID != "" {
		t.Errorf("unmatchable naming should leave SubID empty, got %q", records[1].SubID)
	}
}
