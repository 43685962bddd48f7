package keepsake

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest is the signed metadata included in every keepsake archive.
type Manifest struct {
	Version          string          `yaml:"version"`
	CreatedAt        time.Time       `yaml:"created_at"`
	Recipient        string          `yaml:"recipient"`
	Signer           string          `yaml:"signer,omitempty"`
	SigningPublicKey string          `yaml:"signing_public_key,omitempty"`
	Signature        string          `yaml:"signature,omitempty"`
	Media            []ManifestMedia `yaml:"media"`
}

// SigningBytes marshals the manifest without its signature for signing/verification.
func (m Manifest) SigningBytes() ([]byte, error) {
	clone := m
	clone.Signature = ""
	return yaml.Marshal(clone)
}

// ManifestMedia describes a single media file within the archive.
type ManifestMedia struct {
	Path   string `yaml:"path"`
	Kind   string `yaml:"kind"`
	Size   int64  `yaml:"size"`
	SHA256 string `yaml:"sha256"`
}
