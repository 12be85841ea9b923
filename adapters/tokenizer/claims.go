package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines standard claims with the wallet address of the subject
type AccessClaims struct {
	jwt.RegisteredClaims
	Address string `json:"addr"`
}
