package persona

// Persona is the normalized internal representation of a synthetic user.
// Source records come in two schemas (legacy bio-style and the newer
// lifestyle-style); they are resolved once at load time into this struct,
// with Lifestyle recording which attribute set is authoritative.
type Persona struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Segment string `json:"segment"`

	// Legacy attributes.
	Age        int      `json:"age,omitempty"`
	Occupation string   `json:"occupation,omitempty"`
	Bio        string   `json:"bio,omitempty"`
	PainPoints []string `json:"painPoints,omitempty"`
	Goals      []string `json:"goals,omitempty"`

	// Lifestyle attributes.
	Household     string   `json:"household,omitempty"`
	Devices       []string `json:"devices,omitempty"`
	Routines      []string `json:"routines,omitempty"`
	Tensions      []string `json:"tensions,omitempty"`
	LanguageStyle string   `json:"languageStyle,omitempty"`

	// Lifestyle is true when the lifestyle attribute set was populated in the
	// source record and should drive prompt rendering.
	Lifestyle bool `json:"lifestyle"`
}

// Seed provides the default personas used when no persona file is configured.
func Seed() []Persona {
	return []Persona{
		{
			ID:            "jiwoo-kim",
			Name:          "Ji-woo Kim",
			Segment:       "korea",
			Age:           28,
			Occupation:    "Digital Marketing Manager",
			Household:     "Single, Seoul apartment",
			Devices:       []string{"Coupang Rocket delivery", "Naver Shopping app"},
			Routines:      []string{"Online shopping 3-4x/week", "Check blog reviews before buying"},
			Tensions:      []string{"Too many apps to download", "Delivery times matter", "Trust influencer vs real reviews"},
			LanguageStyle: "informal, tech-savvy, a bit impatient",
			Lifestyle:     true,
		},
		{
			ID:         "agnieszka-nowak",
			Name:       "Agnieszka Nowak",
			Segment:    "poland",
			Age:        41,
			Occupation: "School Administrator",
			Bio:        "Lives in Krakow with her husband and two children. Careful planner who compares prices across Allegro and local shops before committing.",
			PainPoints: []string{"Hidden delivery fees", "Return shipping costs", "Sites that only take card payments"},
			Goals:      []string{"Stretch the household budget", "Find trustworthy sellers"},
		},
		{
			ID:         "emre-yilmaz",
			Name:       "Emre Yilmaz",
			Segment:    "turkey",
			Age:        33,
			Occupation: "Freelance Photographer",
			Bio:        "Istanbul-based creative who buys gear online and resells older equipment. Price-sensitive because of currency swings.",
			PainPoints: []string{"Prices changing week to week", "Customs delays on imports", "Counterfeit listings"},
			Goals:      []string{"Lock in prices early", "Buy from sellers with real reviews"},
		},
	}
}
