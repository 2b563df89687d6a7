package domain

import (
	"encoding/json"
	"time"
)

// NoticeKind classifies a one-time dashboard notice.
type NoticeKind string

const (
	NoticeMerge     NoticeKind = "wishlist_merged"
	NoticePriceDrop NoticeKind = "price_drop"
)

// Notice is a message stored for an account and shown once.
type Notice struct {
	Kind      NoticeKind      `json:"kind"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
