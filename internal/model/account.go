package model

import "time"

const (
	DefaultAvatar = "👤"
	DefaultZone   = "general"
)

// Zones a profile may be tagged with.
var Zones = []string{DefaultZone, "gaming", "life", "culture", "professional"}

func IsZone(zone string) bool {
	for _, z := range Zones {
		if z == zone {
			return true
		}
	}
	return false
}

type Account struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Avatar         string    `json:"avatar"`
	Zone           string    `json:"zone"`
	FollowersCount int       `json:"followers"`
	PostsCount     int       `json:"postsCount"`
	IsVerified     bool      `json:"isVerified"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// PublicAccount is the only projection of an Account that leaves the service.
type PublicAccount struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Avatar     string    `json:"avatar"`
	Zone       string    `json:"zone"`
	Followers  int       `json:"followers"`
	PostsCount int       `json:"postsCount"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (a Account) Public() PublicAccount {
	return PublicAccount{
		ID:         a.ID,
		Username:   a.Username,
		Email:      a.Email,
		Avatar:     a.Avatar,
		Zone:       a.Zone,
		Followers:  a.FollowersCount,
		PostsCount: a.PostsCount,
		IsVerified: a.IsVerified,
		CreatedAt:  a.CreatedAt,
	}
}

type AuthResult struct {
	Token string        `json:"token"`
	User  PublicAccount `json:"user"`
}
