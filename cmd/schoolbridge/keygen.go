package main

import (
	"encoding/base64"
	"fmt"

	"github.com/gorilla/securecookie"
	"github.com/urfave/cli/v2"
)

var keygenCommand = &cli.Command{
	Name:  "keygen",
	Usage: "Generate session cookie keys",
	Action: func(c *cli.Context) error {
		fmt.Println("COOKIE_HASH_KEY=" + base64.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)))
		fmt.Println("COOKIE_BLOCK_KEY=" + base64.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(16)))
		return nil
	},
}
