package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	gos3 "giftwrap/pkg/s3"
	"giftwrap/services/keepsake"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "giftctl",
		Short:         "Utility for managing gift keepsakes and tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newKeepsakesCommand())
	cmd.AddCommand(newTokensCommand())
	return cmd
}

func newKeepsakesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keepsakes",
		Short: "Keepsake build and import operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newKeepsakesBuildCommand())
	cmd.AddCommand(newKeepsakesImportCommand())
	return cmd
}

func newKeepsakesBuildCommand() *cobra.Command {
	var (
		giftFile string
		mediaDir string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Create a signed keepsake from a gift file and its media",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			signer, err := keepsake.NewSignerFromEnv()
			if err != nil {
				return err
			}
			_, err = keepsake.Build(ctx, keepsake.BuildConfig{
				GiftFile: giftFile,
				MediaDir: mediaDir,
				Output:   output,
				Signer:   signer,
				Stdout:   os.Stdout,
			})
			return err
		},
	}

	cmd.Flags().StringVar(&giftFile, "gift", "", "Path to the gift YAML file")
	cmd.Flags().StringVar(&mediaDir, "media-dir", "", "Directory containing the media the gift references")
	cmd.Flags().StringVar(&output, "output", "", "Destination keepsake file (tar.zst)")
	_ = cmd.MarkFlagRequired("gift")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newKeepsakesImportCommand() *cobra.Command {
	var (
		bundleFile string
		apiBaseURL string
		bucket     string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a signed keepsake: upload media and mint a claim token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			signer, err := keepsake.NewSignerFromEnv()
			if err != nil {
				return err
			}
			s3Client, err := gos3.NewClientFromEnv()
			if err != nil {
				return fmt.Errorf("s3 client: %w", err)
			}
			_, err = keepsake.Import(ctx, keepsake.ImportConfig{
				BundlePath: bundleFile,
				APIBaseURL: apiBaseURL,
				Bucket:     bucket,
				S3:         s3Client,
				Signer:     signer,
				Stdout:     os.Stdout,
			})
			return err
		},
	}

	cmd.Flags().StringVar(&bundleFile, "file", "", "Path to the keepsake tar.zst")
	cmd.Flags().StringVar(&apiBaseURL, "api", "", "Base URL of the gift API (e.g. https://gift.example.com)")
	cmd.Flags().StringVar(&bucket, "bucket", "memories", "S3 bucket for gift media")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("api")
	return cmd
}

func newTokensCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Gift token operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newTokensCreateCommand())
	return cmd
}

func newTokensCreateCommand() *cobra.Command {
	var (
		giftFile   string
		apiBaseURL string
		urlPrefix  string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Mint a claim token from a gift file without uploading media",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			gift, err := keepsake.ParseGiftFile(giftFile)
			if err != nil {
				return err
			}
			content, err := gift.Content(urlPrefix)
			if err != nil {
				return err
			}
			client := &http.Client{Timeout: 30 * time.Second}
			token, giftURL, err := keepsake.CreateToken(ctx, client, apiBaseURL, content)
			if err != nil {
				return err
			}
			fmt.Printf("created token %s\n%s\n", token, keepsake.ShareMessage(gift.Recipient, giftURL))
			return nil
		},
	}

	cmd.Flags().StringVar(&giftFile, "gift", "", "Path to the gift YAML file")
	cmd.Flags().StringVar(&apiBaseURL, "api", "", "Base URL of the gift API")
	cmd.Flags().StringVar(&urlPrefix, "url-prefix", "", "Prefix joined with media file names to form their URLs")
	_ = cmd.MarkFlagRequired("gift")
	_ = cmd.MarkFlagRequired("api")
	return cmd
}
