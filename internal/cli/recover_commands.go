package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forPelevin/subalign/internal/domain/recovery"
	"github.com/forPelevin/subalign/internal/faults"
)

func newRecoverCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Realign a project through a language model",
		Long: "When automatic alignment drops sentences, the recovery prompt asks a model\n" +
			"to group word indices into sentences. Paste it into any chat UI and apply\n" +
			"the answer, or let the configured provider answer directly.",
	}
	cmd.AddCommand(newRecoverPromptCommand(cc), newRecoverApplyCommand(cc), newRecoverRunCommand(cc))
	return cmd
}

func newRecoverPromptCommand(cc *commandContext) *cobra.Command {
	var withSystem bool

	cmd := &cobra.Command{
		Use:   "prompt <id>",
		Short: "Print the recovery prompt for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cc.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			p, err := app.Usecase.RecoveryPrompt(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if withSystem {
				fmt.Fprintln(out, p.System)
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, p.User)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withSystem, "system", true, "Include the instructions in the output")
	return cmd
}

func newRecoverApplyCommand(cc *commandContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "apply <id> <response-file>",
		Short: "Apply a model response to a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cc.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			id, path := args[0], args[1]
			out := cmd.OutOrStdout()
			if watch {
				fmt.Fprintf(cmd.ErrOrStderr(), "watching %s, save a valid response to apply it\n", path)
				sentences, err := app.Usecase.WatchRecovery(cmd.Context(), id, path, func(err error) {
					fmt.Fprintln(cmd.ErrOrStderr(), describeRecoveryError(err))
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderSentences(sentences))
				return nil
			}

			b, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			sentences, err := app.Usecase.ApplyRecovery(cmd.Context(), id, string(b))
			if err != nil {
				return errors.New(describeRecoveryError(err))
			}
			fmt.Fprintln(out, renderSentences(sentences))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep re-applying the file on every save until it is valid")
	return cmd
}

func newRecoverRunCommand(cc *commandContext) *cobra.Command {
	var savePath string

	cmd := &cobra.Command{
		Use:   "run <id>",
		Short: "Ask the configured provider for the grouping and apply it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cc.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			sentences, raw, err := app.Usecase.Recover(cmd.Context(), args[0])
			if raw != "" && savePath != "" {
				if werr := os.WriteFile(savePath, []byte(raw), 0o644); werr != nil {
					return werr
				}
			}
			if err != nil {
				msg := describeRecoveryError(err)
				if errors.Is(err, faults.ErrParse) && savePath != "" {
					msg += fmt.Sprintf("\nresponse saved to %s; fix it and run `subalign recover apply %s %s`", savePath, args[0], savePath)
				}
				return errors.New(msg)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSentences(sentences))
			return nil
		},
	}
	cmd.Flags().StringVar(&savePath, "save", "", "Write the raw model response to this file")
	return cmd
}

// describeRecoveryError names the offending group or index when there is one.
func describeRecoveryError(err error) string {
	var pe *recovery.InvalidPartitionError
	var nj *recovery.NoJSONFoundError
	var er *recovery.EmptyResultError
	switch {
	case errors.As(err, &pe):
		return "invalid grouping: " + pe.Error()
	case errors.As(err, &nj):
		return "no JSON with \"indices\" groups found in the response"
	case errors.As(err, &er):
		return "the response lists no sentence groups"
	default:
		return err.Error()
	}
}
