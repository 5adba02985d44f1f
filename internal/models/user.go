package models

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID        string    `json:"userId"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// PendingSignup est une inscription en attente de vérification par code OTP
type PendingSignup struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"passwordHash"`
	Role         Role   `json:"role"`
	Code         string `json:"code"`
	Attempts     int    `json:"attempts"`
}
