package bitbucket

import (
	"github.com/CompassSecurity/imageleek/internal/cmd/bitbucket/scan"
	"github.com/spf13/cobra"
)

var (
	bitbucketURL string
	username     string
	accessToken  string
)

func NewBitBucketRootCmd() *cobra.Command {
	bbCmd := &cobra.Command{
		Use:     "bb [command]",
		Short:   "BitBucket related commands",
		Long:    "Commands to inventory Docker base images on BitBucket Server instances.",
		GroupID: "BitBucket",
	}

	bbCmd.AddCommand(scan.NewScanCmd())

	bbCmd.PersistentFlags().StringVarP(&bitbucketURL, "bitbucket", "b", "", "BitBucket Server URL")
	bbCmd.PersistentFlags().StringVarP(&username, "username", "u", "", "BitBucket username")
	bbCmd.PersistentFlags().StringVarP(&accessToken, "token", "t", "", "BitBucket password or HTTP access token")

	return bbCmd
}
