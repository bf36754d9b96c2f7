// this file contains functions to generate and store Ed25519 key pairs used as DID verification methods
//
// keys are saved as JWK sets. Private key files are not encrypted.

package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"os"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

// GenerateEd25519KeyPair generates a new Ed25519 private key
func GenerateEd25519KeyPair() (ed25519.PrivateKey, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to generate key pair")
	}
	return privateKey, nil
}

// SaveJWKFile writes key as a single entry JWK set.
//
// Parameters:
//   - baseDir: The base directory to scope file access (e.g., "./keys")
//   - filename: The filename within the base directory (e.g., "private.jwk")
func SaveJWKFile(key jwk.Key, baseDir, filename string, perm os.FileMode) error {
	jwkSet := jwk.NewSet()
	if err := jwkSet.AddKey(key); err != nil {
		return WrapKeyManagementError(err, "failed to add key to set")
	}

	jsonBytes, err := json.MarshalIndent(jwkSet, "", "  ")
	if err != nil {
		return WrapInternalError(err, "failed to marshal JWK set")
	}

	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return WrapKeyManagementError(err, "failed to open root directory "+baseDir)
	}
	defer root.Close()

	if err := root.WriteFile(filename, jsonBytes, perm); err != nil {
		return WrapKeyManagementError(err, "failed to write file")
	}
	return nil
}

// ReadJWKFile loads the first key of the JWK set stored in baseDir/filename
func ReadJWKFile(baseDir, filename string) (jwk.Key, error) {
	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to open root directory "+baseDir)
	}
	defer root.Close()

	jsonBytes, err := root.ReadFile(filename)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to read file")
	}

	jwkSet, err := jwk.Parse(jsonBytes)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to parse JWK set")
	}

	if jwkSet.Len() == 0 {
		return nil, NewKeyManagementError("JWK set is empty")
	}

	key, ok := jwkSet.Key(0)
	if !ok {
		return nil, NewKeyManagementError("failed to get key from JWK set")
	}
	return key, nil
}
