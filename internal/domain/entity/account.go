package entity

import "strings"

// Account owns trips. LinkedEmails are the sender addresses allowed to
// forward documents on the account's behalf, stored lowercased.
type Account struct {
	ID            string         `json:"id" bson:"_id"`
	Email         string         `json:"email" bson:"email"`
	LinkedEmails  []string       `json:"linkedEmails" bson:"linkedEmails"`
	FamilyMembers []FamilyMember `json:"familyMembers,omitempty" bson:"familyMembers,omitempty"`
}

// FamilyMember is a known traveler on an account
type FamilyMember struct {
	ID      string   `json:"id" bson:"id"`
	Name    string   `json:"name" bson:"name"`
	Aliases []string `json:"aliases,omitempty" bson:"aliases,omitempty"`
}

// NormalizeEmail is the form linked emails are stored and matched in
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizedLinkedEmails returns the linked emails normalized, without
// blanks or duplicates
func (a *Account) NormalizedLinkedEmails() []string {
	out := make([]string, 0, len(a.LinkedEmails))
	seen := make(map[string]bool, len(a.LinkedEmails))
	for _, e := range a.LinkedEmails {
		e = NormalizeEmail(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
