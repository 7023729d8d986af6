package listing

// Region is a named locality with a display emoji used to group listings.
type Region struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

// Listing is a synthetic placeholder record mimicking a real-estate listing.
// It lives for a single run and is never persisted.
type Listing struct {
	Price    string `json:"price"`
	Area     string `json:"area"`
	Rooms    string `json:"rooms"`
	Location string `json:"location"`
	Type     string `json:"type"`
	Floor    string `json:"floor"`
	Source   string `json:"source"`
}

// Complete reports whether every field is populated.
func (l Listing) Complete() bool {
	return l.Price != "" && l.Area != "" && l.Rooms != "" && l.Location != "" &&
		l.Type != "" && l.Floor != "" && l.Source != ""
}

// DefaultRegions returns the monitored regions in display order.
func DefaultRegions() []Region {
	return []Region{
		{Name: "안양시", Emoji: "🏘️"},
		{Name: "과천시", Emoji: "🌳"},
		{Name: "의왕시", Emoji: "🚄"},
		{Name: "군포시", Emoji: "🏞️"},
		{Name: "수원시", Emoji: "🏛️"},
		{Name: "성남시", Emoji: "🌆"},
		{Name: "용인시", Emoji: "🎡"},
	}
}
