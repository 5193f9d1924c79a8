package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/onechat/internal/common"
	"github.com/dmitrijs2005/onechat/internal/logging"
	"github.com/dmitrijs2005/onechat/internal/server/metrics"
	"github.com/dmitrijs2005/onechat/internal/server/models"
	"github.com/dmitrijs2005/onechat/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type Handler struct {
	users    *services.UserService
	groups   *services.GroupService
	messages *services.MessageService
	metrics  *metrics.Metrics
	log      logging.Logger
}

// tokenField is the token carried in the request body.
type tokenField struct {
	Token string `json:"token"`
}

type signupRequest struct {
	services.SignupInput
}

type loginRequest struct {
	services.LoginInput
}

type createGroupRequest struct {
	tokenField
	services.CreateGroupInput
}

type joinGroupRequest struct {
	tokenField
	services.JoinGroupInput
}

type updateProfileRequest struct {
	tokenField
	services.UpdateProfileInput
}

type sendMessageRequest struct {
	tokenField
	services.SendMessageInput
}

type groupResponse struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

type messageResponse struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

// bind decodes the JSON body into v. An empty body leaves v zeroed.
func bind(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: malformed JSON body", common.ErrorValidation)
	}
	return nil
}

// token prefers the body token and falls back to a Bearer header.
func token(c *gin.Context, body tokenField) string {
	if body.Token != "" {
		return body.Token
	}
	h := c.GetHeader(common.AuthorizationHeaderName)
	if t, ok := strings.CutPrefix(h, common.BearerPrefix); ok {
		return strings.TrimSpace(t)
	}
	return ""
}

func ok(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err, "")
		return
	}
	if err := h.users.Signup(c.Request.Context(), req.SignupInput); err != nil {
		h.fail(c, err, "Username already exists!")
		return
	}
	ok(c, "Signup successful!")
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err, "")
		return
	}
	tok, err := h.users.Login(c.Request.Context(), req.LoginInput)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Login successful!", "token": tok})
}

func (h *Handler) Logout(c *gin.Context) {
	var req tokenField
	if err := bind(c, &req); err != nil {
		h.fail(c, err, "")
		return
	}
	if err := h.users.Logout(c.Request.Context(), token(c, req)); err != nil {
		h.fail(c, err, "")
		return
	}
	ok(c, "Logout successful!")
}

func (h *Handler) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err, "")
		return
	}
	if err := h.groups.Create(c.Request.Context(), token(c, req.tokenField), req.CreateGroupInput); err != nil {
		h.fail(c, err, "Group number already exists!")
		return
	}
	ok(c, fmt.Sprintf("Group '%s' created successfully!", req.GroupName))
}

func (h *Handler) JoinGroup(c *gin.Context) {
	var req joinGroupRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err, "")
		return
	}
	name, err := h.groups.Join(c.Request.Context(), token(c, req.tokenField), req.JoinGroupInput)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	ok(c, fmt.Sprintf("Joined group '%s' successfully!", name))
}

func (h *Handler) GroupInfo(c *gin.Context) {
	var req tokenField
	if err := bind(c, &req); err != nil {
		h.fail(c, err, "")
		return
	}
	g, err := h.groups.Describe(c.Request.Context(), token(c, req), c.Param("group_number"))
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "name": g.Name, "number": g.Number, "members": g.Members})
}

func (h *Handler) Profile(c *gin.Context) {
	var req tokenField
	if err := bind(c, &req); err != nil {
		h.fail(c, err, "")
		return
	}
	p, err := h.users.GetProfile(c.Request.Context(), token(c, req))
	if err != nil {
		h.fail(c, err, "")
		return
	}
	groups := make([]groupResponse, 0, len(p.Groups))
	for _, g := range p.Groups {
		groups = append(groups, groupResponse{Name: g.Name, Number: g.Number})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "username": p.UserName, "name": p.Name, "groups": groups})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err, "")
		return
	}
	if err := h.users.UpdateProfile(c.Request.Context(), token(c, req.tokenField), req.UpdateProfileInput); err != nil {
		h.fail(c, err, "")
		return
	}
	ok(c, "Profile updated successfully!")
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err, "")
		return
	}
	if _, err := h.messages.Send(c.Request.Context(), token(c, req.tokenField), req.SendMessageInput); err != nil {
		h.fail(c, err, "")
		return
	}
	if h.metrics != nil {
		h.metrics.MessagesSent.Inc()
	}
	ok(c, "Message sent!")
}

func (h *Handler) GetMessages(c *gin.Context) {
	var req tokenField
	if err := bind(c, &req); err != nil {
		h.fail(c, err, "")
		return
	}
	msgs, err := h.messages.List(c.Request.Context(), token(c, req), c.Param("group_number"))
	if err != nil {
		h.fail(c, err, "")
		return
	}
	out := lo.Map(msgs, func(m models.Message, _ int) messageResponse {
		return messageResponse{Sender: m.Sender, Message: m.Body, Time: m.SentAt.UTC().Format(time.RFC3339Nano)}
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": out})
}
