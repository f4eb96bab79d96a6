// Package main provides a CLI tool for hashing the admin operator token.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/cory-johannsen/gamehub/internal/frontend/admin"
)

func main() {
	start := time.Now()

	token := flag.String("token", "", "operator token to hash; read from stdin when empty")
	verify := flag.String("verify", "", "existing hash to check the token against instead of hashing")
	flag.Parse()

	if *token == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			flag.Usage()
			os.Exit(1)
		}
		*token = strings.TrimSpace(line)
	}
	if *token == "" {
		log.Fatalf("token must not be empty")
	}

	if *verify != "" {
		if !admin.CheckToken(*token, *verify) {
			fmt.Fprintln(os.Stdout, "token does not match")
			os.Exit(1)
		}
		fmt.Fprintf(os.Stdout, "token matches [%s]\n", time.Since(start))
		return
	}

	hash, err := admin.HashToken(*token)
	if err != nil {
		log.Fatalf("hashing token: %v", err)
	}
	fmt.Fprintf(os.Stdout, "admin:\n  operator_token_hash: %q\n", hash)
	fmt.Fprintf(os.Stderr, "hashed in %s\n", time.Since(start))
}
