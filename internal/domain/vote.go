package domain

import (
	"fmt"
	"time"
)

// Vote stores one user's submitted value for a path.
type Vote struct {
	User    UserID    `json:"user"`
	Locale  LocaleID  `json:"locale"`
	Path    string    `json:"path"`
	Value   string    `json:"value"`
	Type    VoteType  `json:"type"`
	VotedAt time.Time `json:"voted_at"`
}

// NewVote validates one vote and stores its path in canonical form.
func NewVote(user UserID, locale LocaleID, rawPath, value string, voteType VoteType, now time.Time) (Vote, error) {
	user = NormalizeUserID(string(user))
	if user == "" {
		return Vote{}, ErrInvalidUser
	}
	locale = NormalizeLocaleID(string(locale))
	if !IsValidLocaleID(locale) {
		return Vote{}, ErrInvalidLocale
	}
	path, err := ParsePath(rawPath)
	if err != nil {
		return Vote{}, err
	}
	vt, err := ParseVoteType(string(voteType))
	if err != nil {
		return Vote{}, err
	}
	if now.IsZero() {
		return Vote{}, fmt.Errorf("%w: vote timestamp is required", ErrInvalidArgument)
	}
	return Vote{
		User:    user,
		Locale:  locale,
		Path:    path.String(),
		Value:   value,
		Type:    vt,
		VotedAt: now.UTC(),
	}, nil
}
