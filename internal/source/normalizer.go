package source

import (
	"strconv"
	"strings"
	"time"
)

// ParseAmount converts a currency-ish string to a float. Currency symbols,
// thousands separators and surrounding junk are stripped. Anything that
// still fails to parse degrades to 0 — the pipeline must stay total over
// malformed exports.
func ParseAmount(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	negative := strings.HasPrefix(s, "-") || (strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"))

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0
	}
	// A stray trailing dot ("1,234.") still parses; multiple dots do not.
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	if negative {
		v = -v
	}
	return v
}

// ParseCount parses an integer field the same way, truncating decimals.
func ParseCount(raw string) int64 {
	return int64(ParseAmount(raw))
}

// explicit layouts tried before the generic fallback; exports mix the
// DD/MM/YYYY marketplace convention with ISO dates.
var explicitDateLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var fallbackDateLayouts = []string{
	time.RFC3339,
	"01/02/2006 15:04:05",
	"01/02/2006",
	"2006/01/02",
}

// ParseDate parses the date formats that appear in the three exports.
// Returns nil when nothing matches; a nil date is a first-class value
// downstream (excluded from daily series, kept in totals), never a
// sentinel.
func ParseDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	for _, layout := range explicitDateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if !plausibleDate(t) {
			continue
		}
		return &t
	}

	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, s); err == nil && plausibleDate(t) {
			return &t
		}
	}
	return nil
}

// plausibleDate rejects parses that technically succeeded but describe a
// date no marketplace export could contain.
func plausibleDate(t time.Time) bool {
	if t.Year() < 2000 {
		return false
	}
	m := int(t.Month())
	d := t.Day()
	return m >= 1 && m <= 12 && d >= 1 && d <= 31
}

// collectSubIDs gathers every populated sub-id field into an ordered set:
// duplicates removed, first-appearance order preserved.
func collectSubIDs(row RawRow, keys []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, key := range keys {
		v := strings.TrimSpace(row[key])
		if v == "" || v == "-" {
			continue
		}
		lower := strings.ToLower(v)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, v)
	}
	return out
}

// NormalizeOrders maps raw marketplace rows onto canonical OrderRecords.
// Rows with no resolvable order id are dropped; everything else degrades
// field by field rather than failing the row.
func NormalizeOrders(platform Platform, origin Origin, rows []RawRow) []OrderRecord {
	fields := orderFieldsFor(platform)
	subKeys := subIDKeysFor(platform)
	now := time.Now()

	records := make([]OrderRecord, 0, len(rows))
	for _, row := range rows {
		orderID := fields.lookup(row, FieldOrderID)
		skuOrderID := fields.lookup(row, FieldSKUOrderID)
		if orderID == "" && skuOrderID == "" {
			continue
		}
		if orderID == "" {
			orderID = skuOrderID
		}

		records = append(records, OrderRecord{
			SourcePlatform: platform,
			Origin:         origin,
			OrderID:        orderID,
			SKUOrderID:     skuOrderID,
			Commission:     ParseAmount(fields.lookup(row, FieldCommission)),
			OrderValue:     ParseAmount(fields.lookup(row, FieldOrderValue)),
			OrderDate:      ParseDate(fields.lookup(row, FieldOrderDate)),
			Status:         strings.ToLower(fields.lookup(row, FieldStatus)),
			SubIDs:         collectSubIDs(row, subKeys),
			ObservedAt:     now,
		})
	}
	return records
}

// NormalizeAdSpend maps raw ad-platform rows onto canonical AdSpendRecords.
// When no explicit sub-id column exists the sub-id is inferred from the
// campaign naming; inference is best-effort and may leave it empty.
func NormalizeAdSpend(platform Platform, origin Origin, rows []RawRow) []AdSpendRecord {
	fields := facebookAdFields
	now := time.Now()

	records := make([]AdSpendRecord, 0, len(rows))
	for _, row := range rows {
		rec := AdSpendRecord{
			SourcePlatform: platform,
			Origin:         origin,
			CampaignName:   fields.lookup(row, FieldCampaign),
			AdSetName:      fields.lookup(row, FieldAdSet),
			AdName:         fields.lookup(row, FieldAdName),
			Spend:          ParseAmount(fields.lookup(row, FieldSpend)),
			Impressions:    ParseCount(fields.lookup(row, FieldImpressions)),
			Clicks:         ParseCount(fields.lookup(row, FieldClicks)),
			Reach:          ParseCount(fields.lookup(row, FieldReach)),
			Date:           ParseDate(fields.lookup(row, FieldDate)),
			ObservedAt:     now,
		}
		if rec.CampaignName == "" && rec.Spend == 0 {
			continue
		}

		rec.SubID = fields.lookup(row, FieldSubID)
		if rec.SubID == "" {
			rec.SubID = InferSubID(rec.NameBlob())
		}
		records = append(records, rec)
	}
	return records
}
