// Generates a random key suitable for SECRET_KEY, which the server uses
// to verify signed uid assertions.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

const secretKeyBytes = 32

func main() {
	b := make([]byte, secretKeyBytes)

	if _, err := rand.Read(b); err != nil {
		fmt.Printf("error while generating secret key: %v", err)
		os.Exit(1)
	}

	fmt.Println(hex.EncodeToString(b))
}
