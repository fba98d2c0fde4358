// Dev tool: issues a broker JWT for a user and optionally seeds
// conversation memberships into the local Badger store, so a websocket
// client can be pointed at a fresh broker without the external console.
//
// Usage:
//
//	go run ./cmd/tools -user alice -conversations abc,xyz
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"chat-broker/auth"
	"chat-broker/domain"
	"chat-broker/infrastructure/storage"

	"github.com/dgraph-io/badger/v4"
)

func main() {
	user := flag.String("user", "", "user id to issue the token for")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "signing secret (defaults to JWT_SECRET)")
	issuer := flag.String("issuer", "chat-broker", "token issuer")
	duration := flag.Duration("duration", 24*time.Hour, "token lifetime")
	conversations := flag.String("conversations", "", "comma-separated conversation ids to grant membership for")
	badgerPath := flag.String("badger", os.Getenv("BADGER_FILEPATH"), "membership store path (defaults to BADGER_FILEPATH)")
	flag.Parse()

	if *user == "" || *secret == "" {
		fmt.Fprintln(os.Stderr, "both -user and -secret are required")
		os.Exit(2)
	}

	verifier := auth.NewVerifier(*secret, *issuer)
	token, err := verifier.GenerateToken(*user, nil, *duration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token generation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)

	if *conversations == "" {
		return
	}
	if *badgerPath == "" {
		fmt.Fprintln(os.Stderr, "-badger (or BADGER_FILEPATH) is required to grant memberships")
		os.Exit(2)
	}

	db, err := badger.Open(badger.DefaultOptions(*badgerPath).WithLoggingLevel(badger.ERROR))
	if err != nil {
		fmt.Fprintf(os.Stderr, "membership store opening failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	repository := storage.NewMembershipRepository(db, slog.Default())
	for _, conversation := range strings.Split(*conversations, ",") {
		conversation = strings.TrimSpace(conversation)
		if conversation == "" {
			continue
		}
		if err := repository.Grant(domain.ConversationID(conversation), *user); err != nil {
			fmt.Fprintf(os.Stderr, "grant failed for %s: %v\n", conversation, err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "granted %s -> %s\n", *user, conversation)
	}
}
