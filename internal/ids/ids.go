// Package ids generates the random identifiers carried by issued tokens.
package ids

import "github.com/google/uuid"

// NewFamilyID returns a fresh session family identifier (UUIDv4).
func NewFamilyID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewTokenID returns a fresh jti (UUIDv4).
func NewTokenID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
