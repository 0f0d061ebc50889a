package domain

import "time"

// ConsentRequest is a validated authorization request parked while the owner
// looks at the consent screen. It is addressed by a single-use ticket and
// carries everything needed to issue the code, so nothing lives in the
// session between the prompt and the decision.
type ConsentRequest struct {
	ID                  string
	TicketHash          string
	UserID              string
	ClientID            string
	RedirectURI         string
	Scopes              []string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	CreatedAt           time.Time
	ExpiresAt           time.Time
}

func (c ConsentRequest) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
