// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// secretKeyBytes of randomness are hex encoded into a 64 character key.
const secretKeyBytes = 32

// generateSecretKey creates a new bearer key for an account.
// Do not assume anything about keys other than they are
// lowercase hex strings. They are compared exactly.
func generateSecretKey() (string, error) {
	bs := make([]byte, secretKeyBytes)
	n, err := rand.Read(bs)
	if err != nil || n != secretKeyBytes {
		return "", fmt.Errorf("generateSecretKey: n=%d, err=%v", n, err)
	}
	return hex.EncodeToString(bs), nil
}
