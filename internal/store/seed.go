package store

import (
	"time"

	"concierge/internal/model"
)

// SeedState returns the demo household written into a fresh database.
// Dates are relative to now.
func SeedState(now time.Time) *model.State {
	day := func(n int) string {
		return now.AddDate(0, 0, n).Format(model.DateLayout)
	}
	ms := model.MillisOf(now)

	s := model.NewState()
	s.Requests = []model.Request{
		{
			ID:        model.NewID(),
			Title:     "Table for four, Saturday 20:00",
			Category:  "Dining",
			Priority:  model.PriorityMedium,
			Status:    model.StatusOpen,
			Assignee:  "Concierge",
			DueDate:   day(4),
			Notes:     "Quiet corner. Italian or French.",
			CreatedAt: ms,
		},
		{
			ID:        model.NewID(),
			Title:     "Airport transfer Friday",
			Category:  "Travel",
			Priority:  model.PriorityHigh,
			Status:    model.StatusInProgress,
			Assignee:  "Chauffeur",
			DueDate:   day(2),
			Notes:     "Mayfair → LHR T5 at 13:00.",
			CreatedAt: ms - time.Hour.Milliseconds(),
		},
	}
	s.Events = []model.Event{
		{
			ID:       model.NewID(),
			Title:    "Wealth manager call",
			Date:     day(1),
			Time:     "11:30",
			Duration: 45,
			Location: "Teams",
			Notes:    "Review quarterly.",
		},
	}
	s.Contacts = []model.Contact{
		{
			ID:    model.NewID(),
			Name:  "Amelia Clarke",
			Role:  "Concierge",
			Email: "concierge@example.com",
			Phone: "+44 20 7000 0000",
			Notes: "Primary contact",
		},
	}
	s.Properties = []model.Property{
		{
			ID:      model.NewID(),
			Name:    "Mayfair Residence",
			Address: "32 Grosvenor Sq, London",
			Access:  "Concierge desk, fob #12",
			Contact: "Edward (Building Mgr) +44 20...",
			Notes:   "Deep clean Wednesdays",
		},
	}
	s.Trips = []model.Trip{
		{
			ID:    model.NewID(),
			Title: "London → Nice",
			Segments: []model.Segment{
				{ID: model.NewID(), Kind: model.SegmentFlight, Date: day(3), Time: "16:10", Detail: "BA 0342 LHR → NCE", Notes: "Chauffeur arranged"},
				{ID: model.NewID(), Kind: model.SegmentHotel, Date: day(3), Time: "21:00", Detail: "Cheval Blanc, sea-view", Notes: "Late check-in"},
			},
		},
	}
	s.Assets = []model.Asset{
		{ID: model.NewID(), Type: model.AssetVehicle, Name: "Bentley Flying Spur", Identifier: "LX20 BNT", Renewal: day(48), Notes: "Service due in Nov"},
		{ID: model.NewID(), Type: model.AssetArt, Name: "Warhol lithograph", Identifier: "#A12", Notes: "Climate 21°C"},
	}
	s.DatesManual = []model.ImportantDate{
		{ID: model.NewID(), Label: "Anniversary", Date: day(30), Notes: "Dinner booking", Source: model.SourceManual},
	}
	return s
}
