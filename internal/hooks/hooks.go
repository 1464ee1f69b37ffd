// Package hooks contains the user pool triggers run during account creation.
//
// Pre-signup confirms every account and marks the supplied contact channels as
// verified. Post-confirmation enrolls the account in the default group unless
// it asked for admin access. The requested role is caller controlled input: it
// can only withhold the default enrollment, it never grants a group.
package hooks

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
)

const DefaultGroup = "User-Group"

const (
	emailAttribute       = "email"
	phoneNumberAttribute = "phone_number"
	roleAttribute        = "custom:role"
)

const adminRole = "admin"

// GroupAssigner adds a confirmed account to a group of the user pool.
type GroupAssigner interface {
	AddUserToGroup(ctx context.Context, userPoolId string, username string, group string) error
}

// HandlePreSignup auto-confirms the account and pre-verifies email and phone
// number when they are present. It never fails.
func HandlePreSignup(ctx context.Context, event events.CognitoEventUserPoolsPreSignup) (events.CognitoEventUserPoolsPreSignup, error) {
	attributes := event.Request.UserAttributes
	event.Response.AutoConfirmUser = true
	if _, ok := attributes[emailAttribute]; ok {
		event.Response.AutoVerifyEmail = true
	}
	if _, ok := attributes[phoneNumberAttribute]; ok {
		event.Response.AutoVerifyPhone = true
	}
	slog.Debug("Auto-confirming signup", "username", event.UserName,
		"autoVerifyEmail", event.Response.AutoVerifyEmail,
		"autoVerifyPhone", event.Response.AutoVerifyPhone)
	return event, nil
}

type PostConfirmationHook struct {
	assigner     GroupAssigner
	userPoolId   string
	defaultGroup string
}

// NewPostConfirmationHook creates the hook. An empty userPoolId falls back to the
// pool id of each triggering event.
func NewPostConfirmationHook(assigner GroupAssigner, userPoolId string, defaultGroup string) *PostConfirmationHook {
	if defaultGroup == "" {
		defaultGroup = DefaultGroup
	}
	return &PostConfirmationHook{
		assigner:     assigner,
		userPoolId:   userPoolId,
		defaultGroup: defaultGroup,
	}
}

// requestsAdminReview reports whether the account opted out of default
// enrollment by asking for admin access.
func requestsAdminReview(attributes map[string]string) bool {
	role, ok := attributes[roleAttribute]
	return ok && role == adminRole
}

// Handle enrolls the account in the default group. Enrollment failures are
// logged and swallowed so confirmation always succeeds.
func (h *PostConfirmationHook) Handle(ctx context.Context, event events.CognitoEventUserPoolsPostConfirmation) (events.CognitoEventUserPoolsPostConfirmation, error) {
	username := event.UserName
	if requestsAdminReview(event.Request.UserAttributes) {
		slog.Info("User requested admin access, requires manual approval", "username", username)
		return event, nil
	}

	userPoolId := h.userPoolId
	if userPoolId == "" {
		userPoolId = event.UserPoolID
	}
	err := h.assigner.AddUserToGroup(ctx, userPoolId, username, h.defaultGroup)
	if err != nil {
		slog.Error("Error adding user to group", "username", username, "group", h.defaultGroup, "error", err)
		return event, nil
	}
	slog.Info("Added user to group", "username", username, "group", h.defaultGroup)
	return event, nil
}
