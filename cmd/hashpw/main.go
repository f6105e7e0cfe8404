// Command hashpw reads a password from the terminal and prints its PBKDF2
// hash in the storage format used by the server. Useful for seeding accounts
// or fixing one by hand.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/seabattle/internal/cryptox"
	"golang.org/x/term"
)

func main() {

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Fatalf("error reading password: %v", err)
	}
	if len(password) == 0 {
		log.Fatal("empty password")
	}

	hash, err := cryptox.HashPassword(string(password))
	if err != nil {
		log.Fatalf("error hashing password: %v", err)
	}

	fmt.Println(hash)

}
