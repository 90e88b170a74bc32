package auth

import "github.com/mr1hm/pulsemap/internal/models"

func newAdmin(username string) *models.AdminUser {
	return &models.AdminUser{Username: username, PasswordHash: "x"}
}
