package models

import "time"

const (
	ClaimPending = "pending"
	ClaimClaimed = "claimed"
)

// Agent is a registered contestant. Rating and the win/loss/draw counters
// are mutated only by the game service when a game completes.
type Agent struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	APIKey      string `gorm:"uniqueIndex;not null" json:"-"`
	Description string `json:"description,omitempty"`

	// Optional webhook endpoint for lifecycle notifications.
	CallbackURL string `json:"callback_url,omitempty"`

	Elo         int `json:"elo" gorm:"default:1200"`
	GamesPlayed int `json:"games_played" gorm:"default:0"`
	Wins        int `json:"wins" gorm:"default:0"`
	Losses      int `json:"losses" gorm:"default:0"`
	Draws       int `json:"draws" gorm:"default:0"`

	// Claim verification — an agent must be claimed by its human before it
	// becomes eligible for automatic pairing.
	ClaimToken       string `gorm:"uniqueIndex" json:"-"`
	ClaimStatus      string `gorm:"type:varchar(16);default:'pending'" json:"claim_status"`
	VerificationCode string `json:"-"`
	OwnerHandle      string `json:"owner_handle,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Agent) Claimed() bool {
	return a.ClaimStatus == ClaimClaimed
}

// Tier buckets an Elo rating into the league's ladder names.
func Tier(elo int) string {
	switch {
	case elo >= 2000:
		return "Summit"
	case elo >= 1600:
		return "Mountain"
	case elo >= 1200:
		return "Forest"
	case elo >= 800:
		return "Cabin"
	default:
		return "Wood"
	}
}
