package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/vibecheck/backend/internal/model/message"
	"github.com/zhouzirui/vibecheck/backend/internal/model/user"
	"github.com/zhouzirui/vibecheck/backend/internal/service/ai"
	"github.com/zhouzirui/vibecheck/backend/internal/service/messages"
	"github.com/zhouzirui/vibecheck/backend/internal/service/projection"
	"github.com/zhouzirui/vibecheck/backend/internal/share"
)

var (
	inboxQuery    string
	sharePlatform string
)

var inboxCmd = &cobra.Command{
	Use:   "inbox <username>",
	Short: "List messages addressed to a username, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := messages.NewRepository(store, logger)
		inbox := projection.Inbox(repo.All(cmd.Context()), user.Slug(args[0]))
		printMessages(cmd.OutOrStdout(), projection.Search(inbox, inboxQuery))
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <username> <text>",
	Short: "Post an anonymous message to a username",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := messages.NewRepository(store, logger)
		msg, err := repo.Create(cmd.Context(), user.Slug(args[0]), strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %s\n", msg.ID, msg.RecipientID)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Shred a message by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := messages.NewRepository(store, logger)
		removed, err := repo.Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("message %s not found", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), "shredded", args[0])
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <text>",
	Short: "Run the configured AI provider on a message text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gen, err := ai.NewGenerator(cfg.AI)
		if err != nil {
			return err
		}
		annotator := ai.NewAnnotator(gen, logger)
		vibe, replies := annotator.Annotate(cmd.Context(), strings.Join(args, " "))

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "provider: %s\n", gen.Name())
		fmt.Fprintf(out, "vibe:     %s %s\n", vibe.Emoji, vibe.Mood)
		fmt.Fprintf(out, "insight:  %s\n", vibe.Insight)
		for i, r := range replies {
			fmt.Fprintf(out, "reply %d:  %s\n", i+1, r)
		}
		return nil
	},
}

var shareCmd = &cobra.Command{
	Use:   "share <username>",
	Short: "Print the share link and intent for a username",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		action := share.Build(sharePlatform, cfg.Server.PublicBaseURL, user.Slug(args[0]))
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, action.URL)
		if action.Target != "" {
			fmt.Fprintln(out, action.Target)
		}
		if action.Notice != "" {
			fmt.Fprintln(out, action.Notice)
		}
		return nil
	},
}

func init() {
	inboxCmd.Flags().StringVarP(&inboxQuery, "query", "q", "", "case-insensitive content filter")
	shareCmd.Flags().StringVarP(&sharePlatform, "platform", "p", share.Copy, "native|instagram|whatsapp|twitter|copy")
}

func printMessages(w io.Writer, msgs []message.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, "no secrets yet")
		return
	}
	for _, m := range msgs {
		status := "unread"
		if m.Read {
			status = "read"
		}
		ts := time.UnixMilli(m.Timestamp).Format(time.DateTime)
		fmt.Fprintf(w, "%s  %s  %-6s  replies=%d  %s\n", m.ID, ts, status, len(m.Replies), m.Content)
	}
}
