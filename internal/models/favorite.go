package models

import (
	"time"

	"github.com/gocql/gocql"
)

type Favorite struct {
	UserID     string     `json:"userId"`
	MenuItemID gocql.UUID `json:"menuItemId"`
	AddedAt    time.Time  `json:"addedAt"`
}

type FavoriteList struct {
	UserID string     `json:"userId"`
	Items  []MenuItem `json:"items"`
}
