package model

import "time"

// User is the local mirror of an account held by the external identity provider.
//
// The provider owns the account; we keep just enough to list users and to
// decide admin status. The pair (Provider, ExternalID) is unique: one
// provider account maps to exactly one row, refreshed on every sign-in.
//
// WHY ExternalID string?
// GitHub hands out integers, OIDC providers hand out opaque strings ("sub").
// Storing the string form works for both.
type User struct {
	ID         string    `json:"id"         bson:"_id"`
	Provider   string    `json:"provider"   bson:"provider"`
	ExternalID string    `json:"externalId" bson:"externalId"`
	FullName   string    `json:"fullName"   bson:"fullName"`
	Email      string    `json:"email"      bson:"email"`    // may be empty if the provider hides it
	ImageURL   string    `json:"imageUrl"   bson:"imageUrl"` // avatar
	CreatedAt  time.Time `json:"createdAt"  bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"  bson:"updatedAt"`
}
