package menu

type Item struct {
	ID           uint    `json:"id"`
	RestaurantID uint    `json:"restaurantId"`
	Name         string  `json:"name"`
	Description  *string `json:"description,omitempty"`
	Price        int64   `json:"price"`
	Available    bool    `json:"available"`
}
