// apphub is a terminal client for an AppHub server. It drives the same
// synchronization core the web frontend uses: commands load the mirror,
// mutate it through the store, and print from the mirror rather than from raw
// responses.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/apphubhq/apphub/internal/config"
	"github.com/apphubhq/apphub/internal/logging"
	"github.com/apphubhq/apphub/internal/rest"
	"github.com/apphubhq/apphub/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "apphub",
		Short: "AppHub command-line client",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().String("api-url", defaults.GetString("api.base_url"), "AppHub API base URL")
	rootCmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	bindFlag(rootCmd, "api.base_url", "api-url")
	bindFlag(rootCmd, "log.level", "log-level")

	rootCmd.AddCommand(
		newAppsCommand(),
		newAppCommand(),
		newFeedbackCommand(),
		newVoteCommand(),
		newHealthCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func newSession() (*store.Store, *rest.Client, error) {
	logger, err := logging.NewCLILogger(viper.GetString("log.level"))
	if err != nil {
		return nil, nil, err
	}

	client, err := rest.NewClient(rest.Config{
		BaseURL: viper.GetString("api.base_url"),
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, err
	}

	mirror, err := store.New(store.Config{Client: client, Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	return mirror, client, nil
}

func newAppsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "apps",
		Short: "List registered applications",
		RunE: func(cmd *cobra.Command, args []string) error {
			mirror, _, err := newSession()
			if err != nil {
				return err
			}
			if err := mirror.Load(cmd.Context()); err != nil {
				return err
			}
			for _, app := range mirror.Apps() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t[%s]\n", app.ID, app.Name, strings.Join(app.TechStack, ", "))
			}
			return nil
		},
	}
}

func newAppCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "app <id>",
		Short: "Show one application and its feedback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mirror, _, err := newSession()
			if err != nil {
				return err
			}
			if err := mirror.Load(cmd.Context()); err != nil {
				return err
			}

			app, ok := mirror.GetApp(args[0])
			if !ok {
				return fmt.Errorf("app %q not found", args[0])
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n%s\nstack: %s\n", app.Name, app.Description, strings.Join(app.TechStack, ", "))
			for _, row := range mirror.GetAppFeedbacks(app.ID) {
				fmt.Fprintf(out, "  [%s/%s] %s (%d votes) by %s\n", row.Type, row.Status, row.Title, row.Votes, row.Author)
			}
			return nil
		},
	}
}

func newFeedbackCommand() *cobra.Command {
	var feedbackType string
	var author string

	cmd := &cobra.Command{
		Use:   "feedback <app-id> <title> <description>",
		Short: "Submit feedback for an application",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			mirror, _, err := newSession()
			if err != nil {
				return err
			}
			if err := mirror.Load(cmd.Context()); err != nil {
				return err
			}

			record, err := mirror.AddFeedback(cmd.Context(), rest.FeedbackDraft{
				AppID:       args[0],
				Type:        strings.ToUpper(feedbackType),
				Title:       args[1],
				Description: args[2],
				Author:      author,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", record.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&feedbackType, "type", "OTHER", "Feedback type (BUG, FEATURE, IMPROVEMENT, OTHER)")
	cmd.Flags().StringVar(&author, "author", "", "Author name (defaults to Anonymous)")
	return cmd
}

func newVoteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vote <feedback-id>",
		Short: "Upvote a feedback entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mirror, _, err := newSession()
			if err != nil {
				return err
			}
			if err := mirror.Load(cmd.Context()); err != nil {
				return err
			}

			record, err := mirror.VoteFeedback(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now has %d votes\n", record.Title, record.Votes)
			return nil
		},
	}
}

func newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the server health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := newSession()
			if err != nil {
				return err
			}
			health, err := client.CheckHealth(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s at %s\n", health.Status, health.Timestamp)
			return nil
		},
	}
}
