package scan

import (
	"fmt"

	pkgscan "github.com/CompassSecurity/imageleek/pkg/bitbucket/scan"
	"github.com/CompassSecurity/imageleek/pkg/config"
	"github.com/CompassSecurity/imageleek/pkg/format"
	"github.com/docker/go-units"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type BitBucketScanOptions struct {
	BitBucketURL      string
	Username          string
	AccessToken       string
	Projects          []string
	Output            string
	MaxScanGoRoutines int
}

var options = BitBucketScanOptions{}
var maxFileSize string

func NewScanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Inventory Dockerfile base images",
		Long: `Walk all accessible projects (or the ones given with <code>--projects</code>), find the Dockerfiles in every repository and collect the unique base images referenced by their FROM statements.
Create an HTTP access token in your BitBucket Server profile and pass it with the <code>--token</code> flag; a password works too.
The result is printed sorted, one image per line, or written to the file given with <code>--output</code>.`,
		Example: `
# Inventory every project the account can read
imageleek bb scan --bitbucket https://bitbucket.example.com --username auser --token xxxxxx

# Inventory selected projects and write the list to a file
imageleek bb scan -b https://bitbucket.example.com -u auser -t xxxxxx --projects PROJ1,PROJ2 -o base-images.txt
`,
		Run: Scan,
	}

	scanCmd.Flags().StringSliceVarP(&options.Projects, "projects", "p", []string{}, "Project keys to scan, separated by comma. Scans all accessible projects when omitted")
	scanCmd.Flags().StringVarP(&options.Output, "output", "o", "", "Write the sorted base image list to this file instead of stdout")
	scanCmd.Flags().IntVarP(&options.MaxScanGoRoutines, "threads", "", 4, "Number of concurrent repository scans")
	scanCmd.Flags().StringVarP(&maxFileSize, "max-file-size", "", "1Mb",
		"Maximum Dockerfile size to fetch. Larger files are skipped. Format: https://pkg.go.dev/github.com/docker/go-units#FromHumanSize")

	return scanCmd
}

func Scan(cmd *cobra.Command, args []string) {
	if err := config.AutoBindFlags(cmd, map[string]string{
		"bitbucket":     "bitbucket.url",
		"username":      "bitbucket.username",
		"token":         "bitbucket.token",
		"threads":       "common.threads",
		"max-file-size": "common.max_file_size",
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to bind command flags to configuration keys")
	}

	options.BitBucketURL = config.GetString("bitbucket.url")
	options.Username = config.GetString("bitbucket.username")
	options.AccessToken = config.GetString("bitbucket.token")
	options.MaxScanGoRoutines = config.GetInt("common.threads")
	maxFileSize = config.GetString("common.max_file_size")

	if err := config.RequireConfigKeys("bitbucket.url", "bitbucket.username", "bitbucket.token"); err != nil {
		log.Fatal().Err(err).Msg("Required configuration missing")
	}
	if err := config.ValidateURL(options.BitBucketURL, "BitBucket URL"); err != nil {
		log.Fatal().Err(err).Msg("Invalid BitBucket URL")
	}
	if err := config.ValidateToken(options.AccessToken, "BitBucket token"); err != nil {
		log.Fatal().Err(err).Msg("Invalid BitBucket token")
	}
	if err := config.ValidateThreadCount(options.MaxScanGoRoutines); err != nil {
		log.Fatal().Err(err).Msg("Invalid thread count")
	}

	maxBytes, err := units.FromHumanSize(maxFileSize)
	if err != nil {
		log.Fatal().Err(err).Str("size", maxFileSize).Msg("Failed parsing max-file-size flag")
	}

	scanner := pkgscan.NewScanner(pkgscan.ScanOptions{
		BitBucketURL:      options.BitBucketURL,
		Username:          options.Username,
		AccessToken:       options.AccessToken,
		ProjectKeys:       options.Projects,
		MaxFileSize:       maxBytes,
		MaxScanGoRoutines: options.MaxScanGoRoutines,
	})
	images := scanner.Scan(cmd.Context())

	log.Info().Int("count", len(images)).Msg("Found unique base images")

	if options.Output != "" {
		if err := format.WriteLines(options.Output, images); err != nil {
			log.Fatal().Err(err).Str("file", options.Output).Msg("Failed writing output file")
		}
		log.Info().Str("file", options.Output).Msg("Results written")
		return
	}

	for _, image := range images {
		fmt.Println(image)
	}
}
