package ingest

import (
	"strings"
	"testing"

	"github.com/ignite/affiliate-monitor/internal/source"
)

func TestClassifyByFilename(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name         string
		key          string
		wantPlatform source.Platform
		wantKind     Kind
	}{
		{"shopee export", "exports/shopee_orders_2024-11.csv", source.PlatformShopee, KindOrders},
		{"lazada export", "exports/lazada-conversions.csv", source.PlatformLazada, KindOrders},
		{"facebook export", "exports/facebook_ads_nov.csv", source.PlatformFacebook, KindAdSpend},
		{"meta naming", "meta-campaign-report.csv", source.PlatformFacebook, KindAdSpend},
		{"uppercase filename", "SHOPEE_NOV.CSV", source.PlatformShopee, KindOrders},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform, kind := c.Classify(tt.key, nil)
			if platform != tt.wantPlatform || kind != tt.wantKind {
				t.Errorf("Classify(%q) = %s/%s, want %s/%s", tt.key, platform, kind, tt.wantPlatform, tt.wantKind)
			}
		})
	}
}

func TestClassifyByHeaders(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name         string
		header       []string
		wantPlatform source.Platform
		wantKind     Kind
	}{
		{
			"ad spend headers",
			[]string{"Campaign name", "Amount spent", "Impressions", "Day"},
			source.PlatformFacebook, KindAdSpend,
		},
		{
			"lazada sku granularity",
			[]string{"Order Number", "Sku Order ID", "Payout"},
			source.PlatformLazada, KindOrders,
		},
		{
			"shopee thai headers",
			[]string{"รหัสการสั่งซื้อ", "คอมมิชชั่นสินค้าโดยรวม(฿)"},
			source.PlatformShopee, KindOrders,
		},
		{
			"single ambiguous header stays unknown",
			[]string{"Impressions"},
			"", KindUnknown,
		},
		{
			"unrelated csv",
			[]string{"name", "email", "phone"},
			"", KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform, kind := c.Classify("data/upload-1.csv", tt.header)
			if platform != tt.wantPlatform || kind != tt.wantKind {
				t.Errorf("Classify(%v) = %s/%s, want %s/%s", tt.header, platform, kind, tt.wantPlatform, tt.wantKind)
			}
		})
	}
}

func TestReadCSV(t *testing.T) {
	input := "\ufeffOrder ID,Commission,sub_id\nORD-1,50.00,promo_a\nORD-2,30.00\n"

	header, rows, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if header[0] != "Order ID" {
		t.Errorf("BOM not stripped from header: %q", header[0])
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0]["sub_id"] != "promo_a" {
		t.Errorf("rows[0] = %v", rows[0])
	}
	// Short row padded with empty value, not dropped.
	if v, ok := rows[1]["sub_id"]; !ok || v != "" {
		t.Errorf("short row sub_id = %q, %v; want empty present", v, ok)
	}
}

func TestReadCSVEmpty(t *testing.T) {
	header, rows, err := ReadCSV(strings.NewReader(""))
	if err != nil || header != nil || rows != nil {
		t.Errorf("empty input = (%v, %v, %v), want all nil", header, rows, err)
	}
}

func TestToPipelineInput(t *testing.T) {
	batches := []Batch{
		{Key: "a.csv", Platform: source.PlatformShopee, Kind: KindOrders, Rows: []source.RawRow{{"Order ID": "1"}}},
		{Key: "b.csv", Platform: source.PlatformFacebook, Kind: KindAdSpend, Rows: []source.RawRow{{"Campaign name": "x"}}},
		{Key: "c.csv", Platform: "", Kind: KindUnknown, Rows: []source.RawRow{{"name": "y"}}},
	}

	in := ToPipelineInput(batches)
	if len(in.OrderRows) != 1 || len(in.AdSpendRows) != 1 {
		t.Fatalf("input = %d order sets, %d ad sets; want 1 and 1", len(in.OrderRows), len(in.AdSpendRows))
	}
	if in.OrderRows[0].Origin != source.OriginFileImport {
		t.Errorf("origin = %s, want file_import", in.OrderRows[0].Origin)
	}
}
