// Package main provides the corpus seeding CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/docsim/internal/config"
	ghclient "github.com/bull/docsim/internal/github"
	"github.com/bull/docsim/internal/seed"
)

var (
	configPath string
	owner      string
	repo       string
	repoPath   string
	destDir    string
	extensions []string
)

var rootCmd = &cobra.Command{
	Use:   "docsim-seed",
	Short: "Populate the document similarity corpus",
	Long:  "CLI tool for filling the data directory the docsim server ingests at startup",
}

var githubCmd = &cobra.Command{
	Use:   "github",
	Short: "Copy text files from a GitHub repository directory into the corpus",
	Long: `Fetches every matching file under a repository directory and writes it
under the corpus data directory. Files that are not .txt are saved with .txt
appended so the server loads them.

Flags override the seed.github section of the config file.

Environment variables:
  DOCSIM_CONFIG   Config file path (default: config.yaml)
  GITHUB_TOKEN    GitHub token for higher rate limits (optional)
  GITHUB_API_URL  GitHub Enterprise base URL (optional)`,
	RunE: runGitHub,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", getEnv("DOCSIM_CONFIG", "config.yaml"), "config file path")
	githubCmd.Flags().StringVar(&owner, "owner", "", "repository owner")
	githubCmd.Flags().StringVar(&repo, "repo", "", "repository name")
	githubCmd.Flags().StringVar(&repoPath, "path", "", "directory within the repository")
	githubCmd.Flags().StringVar(&destDir, "dest", "", "destination directory (default: paths.data_dir)")
	githubCmd.Flags().StringSliceVar(&extensions, "ext", nil, "file extensions to fetch (default: .txt)")
	rootCmd.AddCommand(githubCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGitHub(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := cfg.Log.NewLogger(os.Stderr)

	gh := cfg.Seed.GitHub
	gh.Owner = firstNonEmpty(owner, gh.Owner)
	gh.Repo = firstNonEmpty(repo, gh.Repo)
	gh.Path = firstNonEmpty(repoPath, gh.Path)
	if len(extensions) > 0 {
		gh.Extensions = extensions
	}
	dest := firstNonEmpty(destDir, cfg.Paths.DataDir)

	if gh.Owner == "" || gh.Repo == "" {
		return fmt.Errorf("repository owner and name are required (--owner, --repo or seed.github)")
	}

	client, err := ghclient.NewClient(os.Getenv("GITHUB_TOKEN"), os.Getenv("GITHUB_API_URL"))
	if err != nil {
		return fmt.Errorf("Failed to create GitHub client: %w", err)
	}
	fetcher := ghclient.NewFetcher(client, gh.Owner, gh.Repo, gh.Path, gh.Extensions...)

	fmt.Printf("Seeding %s from %s/%s...\n", dest, fetcher.Repository(), gh.Path)

	result, err := seed.NewPipeline(fetcher, dest, logger).SyncAll(ctx)
	if err != nil {
		return fmt.Errorf("Seed failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Seed complete!")
	fmt.Printf("  Documents: %d/%d\n", len(result.Written), result.TotalDocs)
	fmt.Printf("  Commit: %s\n", result.CommitSHA)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))

	if len(result.FailedDocs) > 0 {
		fmt.Println()
		fmt.Println("Failed documents:")
		for _, failed := range result.FailedDocs {
			fmt.Printf("  - %s: %s\n", failed.Path, failed.Reason)
		}
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
