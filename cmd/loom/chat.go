package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/imniteen/loom"
)

const chatHelp = `Commands:
  /new             Start a new conversation
  /search <query>  Search your conversations
  /stats           Show your statistics
  /help            Show this help
  /quit            Exit`

// runChat is the interactive loop: plain lines become conversation
// turns, slash commands drive the session.
func runChat(ctx context.Context, out io.Writer, in io.Reader, mgr *loom.Manager, userID string) error {
	fmt.Fprintf(out, "loom interactive chat (user %s)\n", userID)
	fmt.Fprintln(out, chatHelp)
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	sessionID := ""

	for {
		fmt.Fprintf(out, "[%s] you> ", userID)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			fmt.Fprintln(out, "bye")
			return nil

		case line == "/new":
			sessionID = ""
			fmt.Fprintln(out, "started a new conversation")
			continue

		case line == "/help":
			fmt.Fprintln(out, chatHelp)
			continue

		case line == "/stats":
			if err := runStats(ctx, out, mgr, userID); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			continue

		case strings.HasPrefix(line, "/search"):
			query := strings.TrimSpace(strings.TrimPrefix(line, "/search"))
			if query == "" {
				fmt.Fprintln(out, "usage: /search <query>")
				continue
			}
			if err := runSearch(ctx, out, mgr, userID, query); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			continue

		case strings.HasPrefix(line, "/"):
			fmt.Fprintf(out, "unknown command %s\n", line)
			continue
		}

		res, err := mgr.RunTurn(ctx, userID, sessionID, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		sessionID = res.SessionID

		if res.Interrupted {
			fmt.Fprintf(out, "\n%s\n", loom.EscalationNotice)
			fmt.Fprintf(out, "conversation paused - reply on session %s to resume\n\n", res.SessionID)
			continue
		}

		intent := "unknown"
		if res.State.Intent != nil {
			intent = *res.State.Intent
		}
		fmt.Fprintf(out, "\n[agent (%s)] %s\n", intent, res.Reply())
		fmt.Fprintf(out, "messages: %d | session: %s\n\n", len(res.State.History), res.SessionID)
	}
}
