// Package locale provides the message catalog for validation and API error
// strings. Catalogs are TOML files keyed by message id; the built-in English
// catalog is always present as a fallback.
package locale

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// builtinEN is the built-in English catalog
const builtinEN = `
language = "en"

[messages]
"form.required" = "This field is required"
"form.int" = "Must be a whole number"
"form.float" = "Must be a number"
"form.email" = "Must be a valid email address"
"form.date" = "Must be a valid date"
"form.maxlen" = "Value is too long"
"form.choice" = "Not an allowed value"
"report.not_found" = "Report not found"
"report.bad_transition" = "Status change not allowed"
"auth.invalid_credentials" = "Invalid email or password"
"auth.token_expired" = "Session has expired"
`

// catalogFile mirrors the TOML layout
type catalogFile struct {
	Language string            `toml:"language"`
	Messages map[string]string `toml:"messages"`
}

// Catalog resolves message ids to localized strings
type Catalog struct {
	language string
	messages map[string]string
	fallback map[string]string
}

// Builtin returns the built-in English catalog
func Builtin() *Catalog {
	var f catalogFile
	// The constant is checked by tests; a decode failure here is a bug
	if _, err := toml.Decode(builtinEN, &f); err != nil {
		panic(fmt.Sprintf("builtin catalog is invalid: %v", err))
	}
	return &Catalog{
		language: f.Language,
		messages: f.Messages,
		fallback: f.Messages,
	}
}

// Load reads a catalog from a TOML file, with the built-in English catalog
// as fallback for missing keys
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var f catalogFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if f.Language == "" {
		return nil, fmt.Errorf("catalog %s has no language", path)
	}

	return &Catalog{
		language: f.Language,
		messages: f.Messages,
		fallback: Builtin().messages,
	}, nil
}

// Language returns the catalog language code
func (c *Catalog) Language() string {
	return c.language
}

// Get resolves a message id, falling back to English, then to the id itself
func (c *Catalog) Get(key string) string {
	if msg, ok := c.messages[key]; ok {
		return msg
	}
	if msg, ok := c.fallback[key]; ok {
		return msg
	}
	return key
}
