package jwtx

// Signer is anything that can sign app JWTs.
type Signer interface {
	Alg() string
	Sign(AppClaims) (string, error)
	Validate() error
}

// NewSignerRS256 creates an RS256 signer from PEM bytes. GitHub only
// accepts RS256 for app JWTs so there is no other algorithm here.
func NewSignerRS256(pemKey []byte) (Signer, error) {
	return newRS256Signer(pemKey)
}
