package portfolio

import (
	"time"

	"github.com/google/uuid"
)

// Holding is one position inside a portfolio, stored in the jsonb
// holdings column.
type Holding struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Shares   float64 `json:"shares"`
	AvgPrice float64 `json:"avg_price"`
	Value    float64 `json:"value"`
}

// Portfolio is a user's collection of holdings with rolled-up figures.
type Portfolio struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Holdings    []Holding `json:"holdings"`
	TotalValue  float64   `json:"total_value"`
	DailyChange float64   `json:"daily_change"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreatePortfolioRequest is the body for creating an empty portfolio.
type CreatePortfolioRequest struct {
	Name string `json:"name"`
}

// UpdateHoldingsRequest replaces a portfolio's holdings wholesale.
type UpdateHoldingsRequest struct {
	Holdings    []Holding `json:"holdings"`
	TotalValue  float64   `json:"total_value"`
	DailyChange float64   `json:"daily_change"`
}
