package models

import "time"

// AuthToken stores the OAuth credential linking a user to a calendar
// provider. It is created once by the account-linking flow; the only code
// that mutates it afterwards is the credential-refresh path.
type AuthToken struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"index;index:token_user_provider,unique" json:"user_id"`
	Provider     string     `gorm:"index:token_user_provider,unique;type:varchar(50)" json:"provider"`
	AccessToken  string     `gorm:"type:text" json:"-"`
	RefreshToken string     `gorm:"type:text" json:"-"`
	TokenURI     string     `gorm:"type:varchar(255)" json:"-"`
	ClientID     string     `gorm:"type:varchar(255)" json:"-"`
	ClientSecret string     `gorm:"type:text" json:"-"`
	Scopes       string     `gorm:"type:text" json:"-"` // comma separated
	ExpiresAt    *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ValidUntil reports whether the access token is still usable at the given
// instant with some safety margin.
func (t *AuthToken) ValidUntil(instant time.Time) bool {
	return t.AccessToken != "" && t.ExpiresAt != nil && t.ExpiresAt.After(instant)
}
