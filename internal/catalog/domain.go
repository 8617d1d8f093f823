// Package catalog stores shop items, learning modules and owned items.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// ShopItem is something a child can ask to buy with coins.
type ShopItem struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price"`
	Category    string    `json:"category,omitempty"`
	Emoji       string    `json:"emoji,omitempty"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
}

// Module is a learning module that rewards points on completion.
type Module struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	PointsReward int64     `json:"points_reward"`
	IsPublished  bool      `json:"is_published"`
	CreatedAt    time.Time `json:"created_at"`
}

// OwnedItem records an item granted to an actor.
type OwnedItem struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	ShopItemID uuid.UUID `json:"shop_item_id"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// ModuleInput creates a module.
type ModuleInput struct {
	Title        string `json:"title" validate:"required,min=1,max=200"`
	PointsReward int64  `json:"points_reward" validate:"gte=0,max=1000"`
	IsPublished  bool   `json:"is_published"`
}

// ItemInput creates a shop item.
type ItemInput struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
	Price       int64  `json:"price" validate:"gt=0"`
	Category    string `json:"category" validate:"max=50"`
	Emoji       string `json:"emoji" validate:"max=16"`
}

// DefaultItems is the starter shop.
var DefaultItems = []ItemInput{
	{Name: "Small Toy", Description: "A fun small toy", Price: 100, Category: "toys", Emoji: "🧸"},
	{Name: "Book", Description: "An interesting book to read", Price: 200, Category: "books", Emoji: "📚"},
	{Name: "Game Time", Description: "30 minutes of extra game time", Price: 150, Category: "privileges", Emoji: "🎮"},
	{Name: "Movie Night", Description: "Choose the family movie", Price: 300, Category: "privileges", Emoji: "🎬"},
	{Name: "Art Supplies", Description: "New crayons and paper", Price: 250, Category: "supplies", Emoji: "🎨"},
}
