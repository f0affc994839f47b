// Command hashpassword prints an entry for the users file.
//
//	echo -n 's3cret' | hashpassword -user alice -role admin
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"agentegen/pkg/auth"
)

func main() {
	username := flag.String("user", "", "username of the entry")
	role := flag.String("role", "user", "role of the entry")
	flag.Parse()

	if *username == "" {
		log.Fatal("❌ -user is required")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && password == "" {
		log.Fatalf("❌ Failed to read password: %v", err)
	}
	password = strings.TrimRight(password, "\r\n")
	if password == "" {
		log.Fatal("❌ Password cannot be empty")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}

	out, err := yaml.Marshal([]auth.UserRecord{{Username: *username, PasswordHash: hash, Role: *role}})
	if err != nil {
		log.Fatalf("❌ Failed to encode entry: %v", err)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Print(string(out))
}
