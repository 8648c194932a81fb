package models

import (
	"time"

	"github.com/google/uuid"
)

// User identity carried by a verified access token
type User struct {
	ID       int64
	Username string
	RoleID   int
	Role     string
}

// Service client allowed to call basic-auth endpoints
type Client struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
