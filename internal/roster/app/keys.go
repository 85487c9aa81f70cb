package app

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/koki-kondo/mind-status-app/pkg/cryptox"
	"github.com/koki-kondo/mind-status-app/pkg/jwtx"
)

// InitSessionKeys loads the Ed25519 signing key from cfg.SigningKeyFile,
// creating it on first start, and returns a signer and a verifier for it.
//
// The key id is derived from the public key so that it stays stable across
// restarts; tokens issued before a restart keep verifying.
func InitSessionKeys(cfg Config, logger *slog.Logger) (*jwtx.Signer, *jwtx.Verifier, error) {
	pemKey, err := cryptox.LoadOrCreateEd25519Key(cfg.SigningKeyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load signing key: %w", err)
	}

	// The kid must be known before the signer exists, so derive it from a
	// throwaway signer first.
	probe, err := jwtx.NewSigner("", pemKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse signing key: %w", err)
	}
	sum := sha256.Sum256(probe.PublicKey())
	kid := base64.RawURLEncoding.EncodeToString(sum[:8])

	signer, err := jwtx.NewSigner(kid, pemKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse signing key: %w", err)
	}

	logger.Info("session signing key loaded", "kid", kid, "path", cfg.SigningKeyFile)
	return signer, jwtx.NewVerifier(kid, signer.PublicKey(), cfg.Issuer), nil
}
