// confab-passwd hashes passwords for the server's credential stores.
//
// With no flags it prints a "username:$argon2id$..." line suitable for
// the users file. With -db it upserts the user into a SQLite database
// instead.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/marcwhitt/confab/pkg/credentials"
	"github.com/marcwhitt/confab/pkg/crypto"
)

func main() {
	dbPath := flag.String("db", "", "SQLite user database to write to (default: print a users-file line)")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: confab-passwd [-db users.db] <username> [password]")
		os.Exit(2)
	}
	username := flag.Arg(0)

	password := flag.Arg(1)
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "read password: %v\n", err)
			os.Exit(1)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		fmt.Fprintln(os.Stderr, "empty password")
		os.Exit(1)
	}

	hashed, err := crypto.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		os.Exit(1)
	}

	if *dbPath != "" {
		if err := credentials.PutSQLite(*dbPath, username, hashed); err != nil {
			fmt.Fprintf(os.Stderr, "write user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("stored user %q in %s\n", username, *dbPath)
		return
	}

	fmt.Printf("%s:%s\n", username, hashed)
}
