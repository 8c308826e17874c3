package cli

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	cc := &commandContext{}

	root := &cobra.Command{
		Use:           "subalign",
		Short:         "Align speech transcripts to subtitle sentences",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&cc.configPath, "config", "c", "", "Configuration file path")
	root.PersistentFlags().BoolVarP(&cc.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().BoolVarP(&cc.quiet, "quiet", "q", false, "Only log errors")
	root.MarkFlagsMutuallyExclusive("verbose", "quiet")

	root.AddCommand(
		newRunCommand(cc),
		newImportCommand(cc),
		newSplitCommand(cc),
		newAlignCommand(cc),
		newShowCommand(cc),
		newListCommand(cc),
		newRecoverCommand(cc),
		newExcludeCommand(cc),
		newDeleteCommand(cc),
		newRenderCommand(cc),
		newExportCommand(cc),
		newWorkerCommand(cc),
		newConfigCommand(cc),
	)
	return root
}
