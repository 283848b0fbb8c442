package cli

import "github.com/spf13/cobra"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the embedx version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("embedx %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
