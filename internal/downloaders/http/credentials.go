package zouhttp

import (
	"fmt"

	"github.com/k0pernicus/zou/internal/auth"
)

// InteractiveCredentials answers a Basic challenge with the configured
// credentials, asking the user for whatever is missing.
type InteractiveCredentials struct {
	Username string
	Password string

	Prompt       func(label string) (string, error)
	PromptSecret func(label string) (string, error)
}

func (c InteractiveCredentials) Credentials(challenge auth.Challenge, link string) (auth.Credentials, error) {
	creds := auth.Credentials{Username: c.Username, Password: c.Password}
	if creds.Username == "" {
		if c.Prompt == nil {
			return creds, fmt.Errorf("no username configured for %s", link)
		}
		label := "Username: "
		if challenge.Realm != "" {
			label = fmt.Sprintf("Username for %q: ", challenge.Realm)
		}
		username, err := c.Prompt(label)
		if err != nil {
			return creds, err
		}
		creds.Username = username
	}
	if creds.Password == "" {
		if c.PromptSecret == nil {
			return creds, fmt.Errorf("no password configured for %s", link)
		}
		password, err := c.PromptSecret("Password: ")
		if err != nil {
			return creds, err
		}
		creds.Password = password
	}
	return creds, nil
}
