package cli

import (
	"path/filepath"

	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/crypto"
)

// readKeyFile loads the first key of a JWK set file
func readKeyFile(path string) (jwk.Key, error) {
	return crypto.ReadJWKFile(filepath.Dir(path), filepath.Base(path))
}
