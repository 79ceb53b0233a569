package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RichardoC/padchat/internal/chat"
	"github.com/RichardoC/padchat/internal/models"
)

var (
	sendMode      string
	sendWebSearch bool
	sendNew       bool
)

var sendCmd = &cobra.Command{
	Use:   "send <text...>",
	Short: "Send one message to the current conversation and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendMode, "mode", "", "Thinking mode: auto, instant or thinking (default chat.default_mode)")
	sendCmd.Flags().BoolVar(&sendWebSearch, "web-search", false, "Allow the service to search the web")
	sendCmd.Flags().BoolVar(&sendNew, "new", false, "Start a new conversation instead of continuing the last one")
}

func runSend(cmd *cobra.Command, args []string) error {
	var mode models.ThinkingMode
	if sendMode != "" {
		parsed, err := models.ParseThinkingMode(sendMode)
		if err != nil {
			return err
		}
		mode = parsed
	}

	a, err := newApp(cmd.Context(), cfg, logger, chat.WithRestoreSelection(!sendNew))
	if err != nil {
		return err
	}
	defer a.Close()

	conv, res, err := a.store.SendMessage(cmd.Context(), strings.Join(args, " "), chat.SendOptions{
		WebSearch: sendWebSearch,
		Mode:      mode,
	})
	if err != nil {
		return err
	}

	reply := conv.Messages[len(conv.Messages)-1].Content
	fmt.Fprintln(cmd.OutOrStdout(), reply)
	if !res.Success {
		return fmt.Errorf("query failed after %.1fs: %s", res.DurationSeconds(), res.Error)
	}
	return nil
}
