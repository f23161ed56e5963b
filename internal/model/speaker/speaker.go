package speaker

// Speaker is one of the fixed celestial-body personas that can answer
// during a turn.
type Speaker struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

// Seed returns the ten planet personas the product ships with.
func Seed() []Speaker {
	return []Speaker{
		{Name: "Sun", AvatarURL: "https://toppng.com/uploads/preview/sun-icon-free-download-png-and-vector-sun-icon-11562902365ry8jqdxl5e.png"},
		{Name: "Moon", AvatarURL: "https://cdn.icon-icons.com/icons2/2645/PNG/512/moon_icon_159962.png"},
		{Name: "Mercury", AvatarURL: "https://cdn-icons-png.flaticon.com/512/2909/2909511.png"},
		{Name: "Venus", AvatarURL: "https://cdn-icons-png.flaticon.com/512/1266/1266512.png"},
		{Name: "Mars", AvatarURL: "https://cdn-icons-png.flaticon.com/512/182/182535.png"},
		{Name: "Jupiter", AvatarURL: "https://cdn-icons-png.flaticon.com/512/124/124609.png"},
		{Name: "Saturn", AvatarURL: "https://cdn-icons-png.flaticon.com/512/1789/1789725.png"},
		{Name: "Uranus", AvatarURL: "https://cdn-icons-png.flaticon.com/512/290/290803.png"},
		{Name: "Neptune", AvatarURL: "https://cdn-icons-png.flaticon.com/512/3672/3672231.png"},
		{Name: "Pluto", AvatarURL: "https://cdn-icons-png.flaticon.com/512/1266/1266513.png"},
	}
}
