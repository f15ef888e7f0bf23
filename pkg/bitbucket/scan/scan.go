// Package scan walks Bitbucket Server projects and repositories, fetches
// the Dockerfiles they contain and aggregates the referenced base images
// into one deduplicated inventory.
package scan

import (
	"context"
	"sort"
	"sync"

	"github.com/CompassSecurity/imageleek/pkg/bitbucket/client"
	"github.com/CompassSecurity/imageleek/pkg/dockerfile"
	"github.com/rs/zerolog/log"
	"github.com/wandb/parallel"
)

// ScanOptions configures one scan run.
type ScanOptions struct {
	BitBucketURL      string
	Username          string
	AccessToken       string
	ProjectKeys       []string
	MaxFileSize       int64
	MaxScanGoRoutines int
}

// Scanner drives the project → repository → Dockerfile walk. Create one per
// scan with NewScanner.
type Scanner struct {
	opts ScanOptions
	api  *client.Client

	mu         sync.Mutex
	baseImages map[string]bool
}

// NewScanner creates a Scanner for the given options.
func NewScanner(opts ScanOptions) *Scanner {
	if opts.MaxScanGoRoutines < 1 {
		opts.MaxScanGoRoutines = 1
	}

	return &Scanner{
		opts:       opts,
		api:        client.NewClient(opts.BitBucketURL, opts.Username, opts.AccessToken),
		baseImages: map[string]bool{},
	}
}

// Scan visits every project, repository and Dockerfile and returns the
// lexicographically sorted list of unique base images. Failures below the
// project listing only shrink the result, they never abort the scan.
func (s *Scanner) Scan(ctx context.Context) []string {
	projects := s.api.ListProjects(ctx, s.opts.ProjectKeys)
	log.Info().Int("projects", len(projects)).Msg("Starting scan")

	for _, projectKey := range projects {
		s.scanProject(ctx, projectKey)
	}

	images := make([]string, 0, len(s.baseImages))
	for image := range s.baseImages {
		images = append(images, image)
	}
	sort.Strings(images)

	return images
}

// scanProject fans the project's repositories out to a bounded worker pool.
// Repository scans are independent; the only shared state is the image set,
// merged under s.mu.
func (s *Scanner) scanProject(ctx context.Context, projectKey string) {
	log.Info().Str("project", projectKey).Msg("Scanning project")

	repoSlugs := s.api.ListRepositories(ctx, projectKey)
	log.Info().Str("project", projectKey).Int("repositories", len(repoSlugs)).Msg("Found repositories")

	group := parallel.Limited(ctx, s.opts.MaxScanGoRoutines)
	for _, repoSlug := range repoSlugs {
		group.Go(func(ctx context.Context) {
			s.scanRepository(ctx, projectKey, repoSlug)
		})
	}
	group.Wait()
}

func (s *Scanner) scanRepository(ctx context.Context, projectKey string, repoSlug string) {
	log.Debug().Str("project", projectKey).Str("repository", repoSlug).Msg("Scanning repository")

	dockerfiles := dockerfile.FilterDockerfiles(s.api.ListFiles(ctx, projectKey, repoSlug))
	if len(dockerfiles) == 0 {
		return
	}
	log.Info().Str("project", projectKey).Str("repository", repoSlug).Int("dockerfiles", len(dockerfiles)).Msg("Found Dockerfiles")

	for _, filePath := range dockerfiles {
		content, err := s.api.RawFileContent(ctx, projectKey, repoSlug, filePath, s.opts.MaxFileSize)
		if err != nil {
			log.Warn().Err(err).Str("project", projectKey).Str("repository", repoSlug).Str("path", filePath).Msg("Skipping Dockerfile")
			continue
		}

		images := dockerfile.ExtractBaseImages(content)
		if len(images) == 0 {
			continue
		}
		log.Info().Str("project", projectKey).Str("repository", repoSlug).Str("path", filePath).Int("images", len(images)).Msg("Extracted base images")

		s.mu.Lock()
		for image := range images {
			s.baseImages[image] = true
		}
		s.mu.Unlock()
	}
}
