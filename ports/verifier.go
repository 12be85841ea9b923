package ports

// SignatureVerifier checks wallet signatures for one or more chains
type SignatureVerifier interface {
	// NormalizeAddress validates address and returns its canonical form
	NormalizeAddress(address string) (string, error)

	// Verify reports whether signature was produced over message by the key behind address.
	// Any malformed input yields false.
	Verify(address, message, signature string) bool
}
