package ports

import "github.com/layer-3/walletauth/core"

// Tokenizer converts between sessions and signed credentials
type Tokenizer interface {
	// Issue mints a credential asserting identity
	Issue(identity core.Identity) (string, *core.Session, error)

	// Parse verifies the credential and returns the session it carries
	Parse(token string) (*core.Session, error)
}
