package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/onechat/internal/client/api"
	"github.com/dmitrijs2005/onechat/internal/client/config"
)

// API is the server surface the CLI drives; *api.Client implements it.
type API interface {
	Signup(ctx context.Context, userName string, password []byte, name string) (string, error)
	Login(ctx context.Context, userName string, password []byte) (string, error)
	Logout(ctx context.Context, token string) error
	Profile(ctx context.Context, token string) (*api.Profile, error)
	UpdateProfile(ctx context.Context, token, newName string) error
	CreateGroup(ctx context.Context, token, number, name string) (string, error)
	JoinGroup(ctx context.Context, token, number string) (string, error)
	GroupInfo(ctx context.Context, token, number string) (*api.GroupInfo, error)
	SendMessage(ctx context.Context, token, number, body string) error
	GetMessages(ctx context.Context, token, number string) ([]api.Message, error)
}

type App struct {
	api      API
	reader   *bufio.Reader
	out      io.Writer
	token    string
	userName string
}

func NewApp(c *config.Config) *App {
	return &App{
		api:    api.New(c.ServerURL, c.RequestTimeout),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

func (a *App) isLoggedIn() bool {
	return a.token != ""
}

func (a *App) getStatus() string {
	if a.userName == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.userName)
}

// Run starts the REPL and logs out on exit.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to onechat (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
	if a.isLoggedIn() {
		_ = a.Logout(ctx, nil)
	}
}
