package core

import "fmt"

const challengeTemplate = "Sign this message to authenticate: nonce=%s address=%s"

// RenderChallenge returns the text a wallet signs for the given address and nonce.
// The output depends only on its arguments, so the same pair always renders to the same bytes.
func RenderChallenge(address, nonce string) string {
	return fmt.Sprintf(challengeTemplate, nonce, address)
}
