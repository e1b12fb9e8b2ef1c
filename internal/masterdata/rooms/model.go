package rooms

// Room is a hotel room available for cat boarding.
type Room struct {
	ID            int64   `json:"id"`
	Number        string  `json:"number"`
	RoomType      string  `json:"room_type"`
	PricePerNight float64 `json:"price_per_night"`
	IsActive      bool    `json:"is_active"`
}
