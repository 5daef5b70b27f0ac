package domain

import "time"

// LinkedAccount registra que un usuario vinculó una cuenta externa.
type LinkedAccount struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	Provider          string     `json:"provider"`
	ProviderAccountID string     `json:"provider_account_id"`
	DisplayName       string     `json:"display_name,omitempty"`
	Method            LinkMethod `json:"method"`
	CreatedAt         time.Time  `json:"created_at"`
}
