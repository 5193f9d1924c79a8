package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/dmitrijs2005/onechat/internal/client/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	password string
	token    string
	err      error

	sent    []string
	renamed string
	msgs    []api.Message
}

func (f *fakeAPI) Signup(ctx context.Context, userName string, password []byte, name string) (string, error) {
	f.password = string(password)
	return "Signup successful!", f.err
}
func (f *fakeAPI) Login(ctx context.Context, userName string, password []byte) (string, error) {
	f.password = string(password)
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}
func (f *fakeAPI) Logout(ctx context.Context, token string) error { return f.err }
func (f *fakeAPI) Profile(ctx context.Context, token string) (*api.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &api.Profile{UserName: "alice", Name: "Alice", Groups: []api.GroupSummary{{Name: "Seven", Number: "7"}}}, nil
}
func (f *fakeAPI) UpdateProfile(ctx context.Context, token, newName string) error {
	f.renamed = newName
	return f.err
}
func (f *fakeAPI) CreateGroup(ctx context.Context, token, number, name string) (string, error) {
	return "Group '" + name + "' created successfully!", f.err
}
func (f *fakeAPI) JoinGroup(ctx context.Context, token, number string) (string, error) {
	return "Joined", f.err
}
func (f *fakeAPI) GroupInfo(ctx context.Context, token, number string) (*api.GroupInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &api.GroupInfo{Name: "Seven", Number: number, Members: []string{"alice", "bob"}}, nil
}
func (f *fakeAPI) SendMessage(ctx context.Context, token, number, body string) error {
	f.sent = append(f.sent, number+":"+body)
	return f.err
}
func (f *fakeAPI) GetMessages(ctx context.Context, token, number string) ([]api.Message, error) {
	return f.msgs, f.err
}

func newTestApp(t *testing.T, fa *fakeAPI, input string) (*App, *bytes.Buffer) {
	t.Helper()

	origPw := getPassword
	getPassword = func(w io.Writer) ([]byte, error) { return []byte("pw"), nil }
	t.Cleanup(func() { getPassword = origPw })

	var out bytes.Buffer
	return &App{api: fa, reader: bufio.NewReader(strings.NewReader(input)), out: &out}, &out
}

func TestApp_LoginSetsSession(t *testing.T) {
	fa := &fakeAPI{token: "tok"}
	a, out := newTestApp(t, fa, "alice\n")

	require.NoError(t, a.Login(context.Background(), nil))
	assert.True(t, a.isLoggedIn())
	assert.Equal(t, "(alice)", a.getStatus())
	assert.Contains(t, out.String(), "Logged in as alice")

	require.NoError(t, a.Logout(context.Background(), nil))
	assert.False(t, a.isLoggedIn())
	assert.Empty(t, a.getStatus())
}

func TestApp_Signup(t *testing.T) {
	fa := &fakeAPI{}
	a, out := newTestApp(t, fa, "alice\nAlice\n")

	require.NoError(t, a.Signup(context.Background(), nil))
	assert.Equal(t, "pw", fa.password)
	assert.Contains(t, out.String(), "Signup successful!")
}

func TestApp_Commands(t *testing.T) {
	fa := &fakeAPI{msgs: []api.Message{{Sender: "bob", Message: "hi", Time: "not-a-time"}}}
	a, out := newTestApp(t, fa, "")
	a.token = "tok"
	ctx := context.Background()

	require.NoError(t, a.CreateGroup(ctx, []string{"7", "Lucky", "Seven"}))
	require.NoError(t, a.JoinGroup(ctx, []string{"7"}))
	require.NoError(t, a.Send(ctx, []string{"7", "hello", "world"}))
	require.NoError(t, a.Messages(ctx, []string{"7"}))
	require.NoError(t, a.GroupInfo(ctx, []string{"7"}))
	require.NoError(t, a.Rename(ctx, []string{"Big", "Al"}))
	require.NoError(t, a.Profile(ctx, nil))

	assert.Equal(t, []string{"7:hello world"}, fa.sent)
	assert.Equal(t, "Big Al", fa.renamed)

	s := out.String()
	assert.Contains(t, s, "Group 'Lucky Seven' created successfully!")
	assert.Contains(t, s, "[not-a-time] bob: hi")
	assert.Contains(t, s, "#7 Seven: alice, bob")
	assert.Contains(t, s, "alice (Alice)")
}

func TestApp_Usage(t *testing.T) {
	a, out := newTestApp(t, &fakeAPI{}, "")
	a.token = "tok"
	ctx := context.Background()

	assert.ErrorIs(t, a.CreateGroup(ctx, []string{"7"}), errUsage)
	assert.ErrorIs(t, a.JoinGroup(ctx, nil), errUsage)
	assert.ErrorIs(t, a.Send(ctx, []string{"7"}), errUsage)
	assert.ErrorIs(t, a.Messages(ctx, nil), errUsage)
	assert.ErrorIs(t, a.Rename(ctx, nil), errUsage)
	assert.Contains(t, out.String(), "Usage: send <number> <text...>")
}

func TestApp_UnauthorizedDropsSession(t *testing.T) {
	fa := &fakeAPI{err: &api.Error{Status: http.StatusUnauthorized, Message: "Unauthorized!"}}
	a, out := newTestApp(t, fa, "")
	a.token, a.userName = "tok", "alice"

	err := a.Messages(context.Background(), []string{"7"})
	require.Error(t, err)
	assert.False(t, a.isLoggedIn())
	assert.Contains(t, out.String(), "Session expired")
}

func TestApp_OtherErrorsKeepSession(t *testing.T) {
	fa := &fakeAPI{err: errors.New("boom")}
	a, out := newTestApp(t, fa, "")
	a.token = "tok"

	require.Error(t, a.Send(context.Background(), []string{"7", "x"}))
	assert.True(t, a.isLoggedIn())
	assert.Contains(t, out.String(), "Error: boom")
}
