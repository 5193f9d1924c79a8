package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. *App satisfies
// it; tests use a stub.
type execIface interface {
	isLoggedIn() bool
	Signup(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error
	Profile(ctx context.Context, args []string) error
	Rename(ctx context.Context, args []string) error
	CreateGroup(ctx context.Context, args []string) error
	JoinGroup(ctx context.Context, args []string) error
	GroupInfo(ctx context.Context, args []string) error
	Send(ctx context.Context, args []string) error
	Messages(ctx context.Context, args []string) error
}

// runREPL reads commands from reader until EOF, "exit" or "quit". Commands
// that need a session are refused while logged out. Handler errors are
// reported by the handlers themselves and do not stop the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	type command func(ctx context.Context, args []string) error

	authed := map[string]command{
		"logout":   a.Logout,
		"profile":  a.Profile,
		"rename":   a.Rename,
		"create":   a.CreateGroup,
		"join":     a.JoinGroup,
		"info":     a.GroupInfo,
		"send":     a.Send,
		"messages": a.Messages,
		"m":        a.Messages,
	}

	for {
		fmt.Fprintf(w, "onechat%s> ", statusFn())
		line, err := reader.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if err != nil {
				return
			}
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, "Available commands: profile, rename, create, join, info, send, (m)essages, logout, exit")
			} else {
				fmt.Fprintln(w, "Available commands: signup, login, exit")
			}
		case "signup":
			_ = a.Signup(ctx, args)
		case "login":
			_ = a.Login(ctx, args)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fn, ok := authed[cmd]
			switch {
			case !ok:
				fmt.Fprintln(w, "Unknown command:", cmd)
			case !a.isLoggedIn():
				fmt.Fprintln(w, "Please log in first")
			default:
				_ = fn(ctx, args)
			}
		}

		if err != nil {
			return
		}
	}
}
