package main

import (
	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	sessionID  string
	offline    bool
	json       bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "steelman",
		Short: "Run a steel-manning discussion session",
		Long: `steelman guides two participants through a structured discussion:

  1. ISSUE_PROPOSAL  one participant proposes an issue
  2. STEEL_MANNING   the other restates it until the proposer confirms
  3. DISCUSSION      each participant makes up to three statements
  4. SUMMARY         the discussion is summarized

Each command advances the session named by --session. Progress is
checkpointed after every phase, so a session can be continued later.

Examples:
  steelman propose --session s1 --user alice --title "Adopt a four-day week"
  steelman restate --session s1 --user bob "You think a four-day week ..."
  steelman confirm --session s1 --user alice
  steelman say --session s1 --user alice "Shorter weeks reduce burnout ..."
  steelman summarize --session s1
  steelman status --session s1 --json`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default ~/.config/steelman/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.sessionID, "session", "", "Session identifier")
	cmd.PersistentFlags().BoolVar(&opts.offline, "offline", false, "Answer analysis requests locally instead of calling the provider")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "Output results as JSON")

	cmd.AddCommand(
		newProposeCmd(opts),
		newRestateCmd(opts),
		newConfirmCmd(opts),
		newRejectCmd(opts),
		newSayCmd(opts),
		newSummarizeCmd(opts),
		newStatusCmd(opts),
		newResetCmd(opts),
		newTemplatesCmd(opts),
		newInitCmd(),
	)
	return cmd
}
