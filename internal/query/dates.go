package query

import (
	"sort"
	"strings"
	"time"

	"concierge/internal/model"
)

// DefaultRenewalLimit is the number of renewals shown on the dashboard.
const DefaultRenewalLimit = 5

// UpcomingAssetRenewals returns assets whose renewal date falls on or after
// the calendar day of now in loc, soonest first, truncated to limit. A
// non-positive limit returns every match. Renewal dates that do not parse
// are skipped.
func UpcomingAssetRenewals(assets []model.Asset, now time.Time, loc *time.Location, limit int) []model.Asset {
	if loc == nil {
		loc = time.Local
	}
	today := now.In(loc).Format(model.DateLayout)

	out := make([]model.Asset, 0)
	for _, a := range assets {
		renewal := strings.TrimSpace(a.Renewal)
		if renewal == "" {
			continue
		}
		if _, err := time.Parse(model.DateLayout, renewal); err != nil {
			continue
		}
		if renewal < today {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.TrimSpace(out[i].Renewal) < strings.TrimSpace(out[j].Renewal)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// IsDerivedDateID reports whether id names a date synthesized from an asset.
func IsDerivedDateID(id string) bool {
	return strings.HasPrefix(id, model.DerivedDatePrefix)
}

// DerivedDateID returns the id of the date synthesized from asset id.
func DerivedDateID(assetID string) string {
	return model.DerivedDatePrefix + assetID
}

// MergedImportantDates returns the manual dates together with one date per
// asset that has a renewal, ascending by date. Entries on the same date
// keep manual dates first, then assets in input order.
func MergedImportantDates(manual []model.ImportantDate, assets []model.Asset) []model.ImportantDate {
	out := make([]model.ImportantDate, 0, len(manual)+len(assets))
	for _, d := range manual {
		if d.Source == "" {
			d.Source = model.SourceManual
		}
		out = append(out, d)
	}
	for _, a := range assets {
		if strings.TrimSpace(a.Renewal) == "" {
			continue
		}
		out = append(out, model.ImportantDate{
			ID:     DerivedDateID(a.ID),
			Label:  a.Name + " renewal",
			Date:   a.Renewal,
			Source: model.SourceAssets,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}
