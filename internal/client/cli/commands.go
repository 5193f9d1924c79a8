package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/onechat/internal/client/api"
	"github.com/dmitrijs2005/onechat/internal/common"
)

var errUsage = errors.New("usage")

// getSimpleText and getPassword can be swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

func (a *App) report(err error) error {
	if errors.Is(err, api.ErrUnauthorized) && a.isLoggedIn() {
		a.token, a.userName = "", ""
		fmt.Fprintln(a.out, "Session expired, please log in again.")
		return err
	}
	fmt.Fprintln(a.out, "Error:", err)
	return err
}

func (a *App) usage(format string) error {
	fmt.Fprintln(a.out, "Usage:", format)
	return errUsage
}

func (a *App) credentials() (string, []byte, error) {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return userName, password, nil
}

func (a *App) Signup(ctx context.Context, _ []string) error {
	userName, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	name, err := getSimpleText(a.reader, "Display name (empty for username)", a.out)
	if err != nil {
		return err
	}

	msg, err := a.api.Signup(ctx, userName, password, name)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *App) Login(ctx context.Context, _ []string) error {
	userName, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	token, err := a.api.Login(ctx, userName, password)
	if err != nil {
		return a.report(err)
	}
	a.token, a.userName = token, userName
	fmt.Fprintln(a.out, "Logged in as", userName)
	return nil
}

func (a *App) Logout(ctx context.Context, _ []string) error {
	err := a.api.Logout(ctx, a.token)
	a.token, a.userName = "", ""
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Profile(ctx context.Context, _ []string) error {
	p, err := a.api.Profile(ctx, a.token)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "%s (%s)\n", p.UserName, p.Name)
	for _, g := range p.Groups {
		fmt.Fprintf(a.out, "  #%s %s\n", g.Number, g.Name)
	}
	return nil
}

func (a *App) Rename(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usage("rename <name...>")
	}
	if err := a.api.UpdateProfile(ctx, a.token, strings.Join(args, " ")); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Profile updated")
	return nil
}

func (a *App) CreateGroup(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return a.usage("create <number> <name...>")
	}
	msg, err := a.api.CreateGroup(ctx, a.token, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *App) JoinGroup(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("join <number>")
	}
	msg, err := a.api.JoinGroup(ctx, a.token, args[0])
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *App) GroupInfo(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("info <number>")
	}
	g, err := a.api.GroupInfo(ctx, a.token, args[0])
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "#%s %s: %s\n", g.Number, g.Name, strings.Join(g.Members, ", "))
	return nil
}

func (a *App) Send(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return a.usage("send <number> <text...>")
	}
	if err := a.api.SendMessage(ctx, a.token, args[0], strings.Join(args[1:], " ")); err != nil {
		return a.report(err)
	}
	return nil
}

func (a *App) Messages(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("messages <number>")
	}
	msgs, err := a.api.GetMessages(ctx, a.token, args[0])
	if err != nil {
		return a.report(err)
	}
	if len(msgs) == 0 {
		fmt.Fprintln(a.out, "No messages")
		return nil
	}
	for _, m := range msgs {
		fmt.Fprintf(a.out, "[%s] %s: %s\n", shortTime(m.Time), m.Sender, m.Message)
	}
	return nil
}

// shortTime renders a server timestamp in local time, or returns it as is
// when it cannot be parsed.
func shortTime(s string) string {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
