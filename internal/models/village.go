package models

// Village holds the static attributes of a monitored village.
type Village struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Population int     `json:"population"`
	State      string  `json:"state"`
}

// Villages is the monitored-village registry.
var Villages = []Village{
	{ID: "MH_SHP", Name: "Shirpur", Lat: 21.3500, Lon: 74.8800, Population: 28000, State: "Maharashtra"},
	{ID: "MH_DHA", Name: "Dharangaon", Lat: 21.0167, Lon: 75.2667, Population: 15000, State: "Maharashtra"},
	{ID: "MH_SHA", Name: "Shahada", Lat: 21.5452, Lon: 74.4695, Population: 22000, State: "Maharashtra"},
	{ID: "MH_RAV", Name: "Raver", Lat: 21.2456, Lon: 76.0423, Population: 18000, State: "Maharashtra"},
	{ID: "MH_YAW", Name: "Yawal", Lat: 21.1667, Lon: 75.7000, Population: 12000, State: "Maharashtra"},
	{ID: "MH_CHO", Name: "Chopda", Lat: 21.2500, Lon: 75.3000, Population: 25000, State: "Maharashtra"},
	{ID: "MH_AMA", Name: "Amalner", Lat: 21.0500, Lon: 75.0667, Population: 31000, State: "Maharashtra"},
	{ID: "MH_PAR", Name: "Parola", Lat: 20.8833, Lon: 75.1167, Population: 14000, State: "Maharashtra"},
	{ID: "MH_PAC", Name: "Pachora", Lat: 20.6572, Lon: 75.3444, Population: 19000, State: "Maharashtra"},
	{ID: "MH_CHA", Name: "Chalisgaon", Lat: 20.4619, Lon: 75.0167, Population: 42000, State: "Maharashtra"},
	{ID: "UP_BAH", Name: "Bahraich", Lat: 27.5700, Lon: 81.5900, Population: 55000, State: "UP"},
	{ID: "UP_BAL", Name: "Balrampur", Lat: 27.4300, Lon: 82.1800, Population: 38000, State: "UP"},
	{ID: "UP_SHR", Name: "Shravasti", Lat: 27.5200, Lon: 81.8700, Population: 21000, State: "UP"},
	{ID: "UP_LAK", Name: "Lakhimpur", Lat: 27.9500, Lon: 80.7800, Population: 47000, State: "UP"},
	{ID: "UP_GON", Name: "Gonda", Lat: 27.1300, Lon: 81.9700, Population: 62000, State: "UP"},
}

// VillageByID looks up a village in the registry.
func VillageByID(id string) (Village, bool) {
	for _, v := range Villages {
		if v.ID == id {
			return v, true
		}
	}
	return Village{}, false
}
