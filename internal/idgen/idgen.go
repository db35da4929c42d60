// Package idgen provides short, URL-safe unique IDs backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is lower-case only so ids are safe in URLs and case-insensitive
// collations alike.
const Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Length is the number of random characters (excluding the prefix).
const Length = 16

// AgendaPrefix marks agenda item ids.
const AgendaPrefix = "ag_"

// New returns prefix followed by Length random characters.
func New(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
