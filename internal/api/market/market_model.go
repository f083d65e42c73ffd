package market

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Quote is the latest stored snapshot for a traded symbol. Data carries
// provider-specific extras (volume, 52-week range) untouched.
type Quote struct {
	ID            uuid.UUID       `json:"id"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Price         float64         `json:"price"`
	Change        float64         `json:"change"`
	ChangePercent float64         `json:"change_percent"`
	Data          json.RawMessage `json:"data,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// UpsertQuoteRequest is the body for writing a symbol snapshot.
type UpsertQuoteRequest struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Price         float64         `json:"price"`
	Change        float64         `json:"change"`
	ChangePercent float64         `json:"change_percent"`
	Data          json.RawMessage `json:"data,omitempty"`
}
