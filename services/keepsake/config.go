package keepsake

import (
	"io"
	"net/http"
	"time"

	gos3 "giftwrap/pkg/s3"
)

// BuildConfig configures keepsake archive creation.
type BuildConfig struct {
	GiftFile string
	MediaDir string
	Output   string
	Signer   *Signer
	Now      func() time.Time
	Stdout   io.Writer
}

// ImportConfig configures keepsake import operations.
type ImportConfig struct {
	BundlePath string
	APIBaseURL string
	Bucket     string
	KeyPrefix  string
	HTTPClient *http.Client
	S3         *gos3.Client
	Signer     *Signer
	Stdout     io.Writer
}
