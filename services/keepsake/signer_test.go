package keepsake

import (
	"strings"
	"testing"

	"filippo.io/age"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("generate identity: %v", err)
	}
	t.Setenv(envAgeSecretKey, identity.String())
	t.Setenv(envAgePublicKey, "")

	signer, err := NewSignerFromEnv()
	if err != nil {
		t.Fatalf("NewSignerFromEnv: %v", err)
	}
	return signer
}

func TestSignerRoundTrip(t *testing.T) {
	signer := newTestSigner(t)

	payload := []byte("keepsake manifest payload")
	sig, err := signer.Sign(payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := signer.Verify(payload, sig, signer.PublicKeyBase64()); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := signer.Verify([]byte("tampered payload"), sig, ""); err == nil {
		t.Fatal("Verify accepted tampered payload")
	}
}

func TestSignerVerifyOnlyFromManifestKey(t *testing.T) {
	signing := newTestSigner(t)
	payload := []byte("payload")
	sig, err := signing.Sign(payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	// A verifier configured with only the embedded public key can check the
	// signature without the secret key.
	verifier := &Signer{}
	if err := verifier.Verify(payload, sig, signing.PublicKeyBase64()); err != nil {
		t.Fatalf("Verify with manifest key: %v", err)
	}
	if _, err := verifier.Sign(payload); err == nil {
		t.Fatal("Sign succeeded without private key")
	}
}

func TestSignerRejectsMissingEnv(t *testing.T) {
	t.Setenv(envAgeSecretKey, "")
	t.Setenv(envAgePublicKey, "")
	if _, err := NewSignerFromEnv(); err == nil || !strings.Contains(err.Error(), "must be set") {
		t.Fatalf("NewSignerFromEnv = %v, want missing-env error", err)
	}
}
