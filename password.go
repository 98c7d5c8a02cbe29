// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"unicode/utf16"

	"golang.org/x/crypto/bcrypt"
)

const (
	// defaultHashCost is the bcrypt cost used for every password. It's
	// fixed for the process and never chosen per request.
	defaultHashCost = 10

	// minPasswordLength counts UTF-16 code units.
	minPasswordLength = 8

	// bcrypt only looks at this many bytes of input.
	maxPasswordBytes = 72
)

// passwordHasher salts and hashes passwords with bcrypt.
type passwordHasher struct {
	cost int
}

func (h passwordHasher) hash(password string) (string, error) {
	cost := h.cost
	if cost == 0 {
		cost = defaultHashCost
	}
	bs, err := bcrypt.GenerateFromPassword(truncatePassword(password), cost)
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

// truncatePassword keeps the first maxPasswordBytes bytes, the part of a
// password bcrypt actually hashes.
func truncatePassword(password string) []byte {
	bs := []byte(password)
	if len(bs) > maxPasswordBytes {
		bs = bs[:maxPasswordBytes]
	}
	return bs
}

// longEnough reports whether password meets minPasswordLength.
func longEnough(password string) bool {
	return len(utf16.Encode([]rune(password))) >= minPasswordLength
}
