package cmd

import (
	"context"
	"fmt"

	"github.com/phanxgames/vizmap"
	"github.com/phanxgames/vizmap/internal/config"
	"github.com/phanxgames/vizmap/internal/logging"
	"github.com/phanxgames/vizmap/rosbridge"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var topicsCmd = &cobra.Command{
	Use:   "topics [message-type]",
	Short: "List rosbridge topics carrying a message type",
	Long: `List the topics the robot currently publishes with the given message type.

Defaults to pose topics (` + vizmap.PoseMessageType + `), which is what the
pose layer can subscribe to.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTopics,
}

func init() {
	rootCmd.AddCommand(topicsCmd)
}

func runTopics(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	msgType := vizmap.PoseMessageType
	if len(args) == 1 {
		msgType = args[0]
	}

	logger := logging.NopLogger()
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Rosbridge.DialTimeout)
	defer cancel()

	client, err := rosbridge.Dial(ctx, cfg.Rosbridge.URL, logger)
	if err != nil {
		return fmt.Errorf("connect to rosbridge at %s: %w", cfg.Rosbridge.URL, err)
	}
	defer func() { _ = client.Close() }()

	topics, err := client.Topics(ctx, msgType)
	if err != nil {
		return err
	}
	if len(topics) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No topics of type %s\n", msgType)
		return nil
	}
	for _, t := range topics {
		fmt.Fprintln(cmd.OutOrStdout(), t)
	}
	return nil
}
