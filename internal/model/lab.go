package model

import "time"

// Lab is a resource group that lends equipment. Used for display only.
type Lab struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
