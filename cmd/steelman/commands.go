package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/steelman/internal/config"
	"github.com/fyrsmithlabs/steelman/internal/session"
)

func newProposeCmd(opts *rootOptions) *cobra.Command {
	var user, title, description string
	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Propose the issue to discuss",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(s *session.Session) error {
				issue, err := s.ProposeIssue(cmd.Context(), user, title, description)
				if err != nil {
					return err
				}
				if opts.json {
					return outputJSON(cmd.OutOrStdout(), issue)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Issue proposed by %s: %s\n", issue.ProposedBy, issue.Text())
				return printPhase(cmd.OutOrStdout(), s)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Participant proposing the issue (required)")
	cmd.Flags().StringVar(&title, "title", "", "Issue title (required)")
	cmd.Flags().StringVar(&description, "description", "", "Issue description")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newRestateCmd(opts *rootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "restate <text>",
		Short: "Restate the proposed issue in your own words",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(s *session.Session) error {
				r, err := s.EvaluateRestatement(cmd.Context(), user, strings.Join(args, " "))
				if err != nil {
					return err
				}
				if opts.json {
					return outputJSON(cmd.OutOrStdout(), r)
				}
				w := cmd.OutOrStdout()
				if r.Analysis.IsAccurate {
					fmt.Fprintf(w, "Restatement judged accurate (confidence %.2f).\n", r.Analysis.Confidence)
					fmt.Fprintf(w, "Waiting for %s to confirm.\n", r.OriginalAuthor)
				} else {
					fmt.Fprintln(w, "Restatement judged inaccurate.")
				}
				printList(w, "Missing points", r.Analysis.MissingPoints)
				printList(w, "Suggestions", r.Analysis.Suggestions)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Participant restating the issue (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newConfirmCmd(opts *rootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm that the pending restatement represents your position",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(s *session.Session) error {
				if err := s.ConfirmRestatement(cmd.Context(), user); err != nil {
					return err
				}
				if opts.json {
					return outputJSON(cmd.OutOrStdout(), s.Restatement())
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Restatement confirmed.")
				return printPhase(cmd.OutOrStdout(), s)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Original author confirming the restatement (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newRejectCmd(opts *rootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "reject",
		Short: "Reject the pending restatement so it can be restated again",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(s *session.Session) error {
				if err := s.RejectRestatement(cmd.Context(), user); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Restatement rejected.")
				return printPhase(cmd.OutOrStdout(), s)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Original author rejecting the restatement (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newSayCmd(opts *rootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "say <statement>",
		Short: "Add a statement to the discussion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(s *session.Session) error {
				st, err := s.AddStatement(cmd.Context(), user, strings.Join(args, " "))
				if err != nil {
					return err
				}
				if opts.json {
					return outputJSON(cmd.OutOrStdout(), st)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Statement %s accepted, %d remaining.\n", shortID(st.ID), s.Remaining())
				return printPhase(cmd.OutOrStdout(), s)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Participant making the statement (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newSummarizeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize",
		Short: "Summarize the finished discussion",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(s *session.Session) error {
				summary, err := s.Summarize(cmd.Context())
				if err != nil {
					return err
				}
				if opts.json {
					return outputJSON(cmd.OutOrStdout(), summary)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintln(w, summary.Summary)
				printList(w, "Common ground", summary.CommonGround)
				printList(w, "Fallacies", summary.Fallacies)
				return nil
			})
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session's phase and statements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(s *session.Session) error {
				st := newStatus(s)
				if opts.json {
					return outputJSON(cmd.OutOrStdout(), st)
				}
				return printStatus(cmd.OutOrStdout(), st)
			})
		},
	}
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the session's saved progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(s *session.Session) error {
				if err := s.Discard(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session %s reset.\n", s.ID())
				return nil
			})
		},
	}
}

func newTemplatesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the available prompt templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ids := a.gateway.Prompts().IDs()
			if opts.json {
				return outputJSON(cmd.OutOrStdout(), ids)
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.EnsureConfigDir(); err != nil {
				return err
			}
			dir, err := config.DefaultDir()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config directory: %s\n", dir)
			fmt.Fprintln(cmd.OutOrStdout(), "Place config.yaml there with 0600 permissions.")
			return nil
		},
	}
}
