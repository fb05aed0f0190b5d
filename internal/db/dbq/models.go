package dbq

import "time"

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Business struct {
	ID                 int64     `json:"id"`
	OwnerID            int64     `json:"owner_id"`
	Name               string    `json:"name"`
	Phone              string    `json:"phone"`
	Email              string    `json:"email"`
	RegistrationNumber string    `json:"registration_number"`
	Address            string    `json:"address"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type Shop struct {
	ID          int64     `json:"id"`
	BusinessID  int64     `json:"business_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	Phone       string    `json:"phone"`
	Timezone    string    `json:"timezone"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type OpeningHour struct {
	ID        int64  `json:"id"`
	ShopID    int64  `json:"shop_id"`
	DayID     int64  `json:"day_id"`
	IsClosed  bool   `json:"is_closed"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type Catalogue struct {
	ID              int64     `json:"id"`
	ShopID          int64     `json:"shop_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	PriceCents      int64     `json:"price_cents"`
	DurationMinutes int64     `json:"duration_minutes"`
	IsBookable      bool      `json:"is_bookable"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Order struct {
	ID             int64     `json:"id"`
	Reference      string    `json:"reference"`
	ShopID         int64     `json:"shop_id"`
	CatalogueID    *int64    `json:"catalogue_id"`
	CustomerID     int64     `json:"customer_id"`
	Quantity       int64     `json:"quantity"`
	Notes          string    `json:"notes"`
	VisitAt        time.Time `json:"visit_at"`
	TimezoneOffset int64     `json:"timezone_offset"`
	Status         string    `json:"status"`
	ReminderSent   bool      `json:"reminder_sent"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Review struct {
	ID        int64     `json:"id"`
	ShopID    int64     `json:"shop_id"`
	UserID    int64     `json:"user_id"`
	Rating    int64     `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Faq struct {
	ID        int64     `json:"id"`
	ShopID    int64     `json:"shop_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Position  int64     `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Offer struct {
	ID              int64     `json:"id"`
	ShopID          int64     `json:"shop_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DiscountPercent int64     `json:"discount_percent"`
	StartsOn        string    `json:"starts_on"`
	EndsOn          string    `json:"ends_on"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type WishlistItem struct {
	CatalogueID int64     `json:"catalogue_id"`
	ShopID      int64     `json:"shop_id"`
	Name        string    `json:"name"`
	PriceCents  int64     `json:"price_cents"`
	AddedAt     time.Time `json:"added_at"`
}
