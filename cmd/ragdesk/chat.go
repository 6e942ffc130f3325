package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ragdesk/internal/console"
)

func newChatCmd(open func(*cobra.Command) *session) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Ask questions about the indexed documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := open(cmd)
			ctx := cmd.Context()
			con, err := s.enter(ctx, console.ViewChat)
			if err != nil {
				return err
			}

			fmt.Fprintln(s.out, "Ask me anything about the documents! (/quit to leave)")
			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for {
				fmt.Fprint(s.out, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(s.out)
					return scanner.Err()
				}
				line := scanner.Text()
				if strings.TrimSpace(line) == "/quit" {
					return nil
				}

				before := len(con.Chat.Turns())
				if !con.Chat.SubmitQuestion(ctx, line) {
					continue
				}
				for _, turn := range con.Chat.Turns()[before:] {
					if turn.Role == console.RoleAssistant {
						fmt.Fprintf(s.out, "bot: %s\n", turn.Text)
					}
				}
			}
		},
	}
}
