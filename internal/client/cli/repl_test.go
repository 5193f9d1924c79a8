package cli

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
)

type fakeExec struct {
	loggedIn bool
	calls    []string
	args     map[string][]string
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	if f.args == nil {
		f.args = map[string][]string{}
	}
	f.args[name] = args
	return nil
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Signup(ctx context.Context, args []string) error {
	return f.record("signup", args)
}
func (f *fakeExec) Login(ctx context.Context, args []string) error {
	f.loggedIn = true
	return f.record("login", args)
}
func (f *fakeExec) Logout(ctx context.Context, args []string) error {
	f.loggedIn = false
	return f.record("logout", args)
}
func (f *fakeExec) Profile(ctx context.Context, args []string) error {
	return f.record("profile", args)
}
func (f *fakeExec) Rename(ctx context.Context, args []string) error { return f.record("rename", args) }
func (f *fakeExec) CreateGroup(ctx context.Context, args []string) error {
	return f.record("create", args)
}
func (f *fakeExec) JoinGroup(ctx context.Context, args []string) error {
	return f.record("join", args)
}
func (f *fakeExec) GroupInfo(ctx context.Context, args []string) error {
	return f.record("info", args)
}
func (f *fakeExec) Send(ctx context.Context, args []string) error { return f.record("send", args) }
func (f *fakeExec) Messages(ctx context.Context, args []string) error {
	return f.record("messages", args)
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	input := strings.Join([]string{
		"help",
		"profile",
		"signup",
		"login",
		"help",
		"create 7 Lucky Seven",
		"join 7",
		"send 7 hello there",
		"m 7",
		"info 7",
		"rename New Name",
		"foobar",
		"logout",
		"exit",
		"profile",
	}, "\n")

	exec := &fakeExec{}
	var out bytes.Buffer
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader(input)), &out)

	want := []string{"signup", "login", "create", "join", "send", "messages", "info", "rename", "logout"}
	if strings.Join(exec.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", exec.calls, want)
	}
	if got := exec.args["send"]; strings.Join(got, " ") != "7 hello there" {
		t.Fatalf("send args = %v", got)
	}

	s := out.String()
	for _, frag := range []string{"Please log in first", "Unknown command: foobar", "Bye!", "Available commands: signup"} {
		if !strings.Contains(s, frag) {
			t.Fatalf("output missing %q:\n%s", frag, s)
		}
	}
}

func TestRunREPL_StopsAtEOF(t *testing.T) {
	exec := &fakeExec{loggedIn: true}
	var out bytes.Buffer

	runREPL(context.Background(), exec, func() string { return "(s)" }, bufio.NewReader(strings.NewReader("\n\nprofile")), &out)

	if len(exec.calls) != 1 || exec.calls[0] != "profile" {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
	if !strings.Contains(out.String(), "onechat(s)> ") {
		t.Fatalf("status not shown in prompt: %q", out.String())
	}
}
