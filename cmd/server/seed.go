package main

import "drivegate/internal/oauth/models"

// seedUser is the development identity used with the in-memory stores.
func seedUser() *models.User {
	return &models.User{
		ID:     "11111111-1111-4111-8111-111111111111",
		Email:  "dev@drivegate.local",
		Name:   "Dev User",
		Active: true,
	}
}
