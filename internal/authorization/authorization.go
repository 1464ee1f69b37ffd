// Package authorization decides which storage keys a caller may address.
//
// Rules:
//   - Members of the admin group may address every key.
//   - Everyone else is confined to the key namespace "users/{subject}/".
//   - Operations naming an existing key (download, delete) are validated and
//     rejected with ErrForbidden when the key lies outside the caller's namespace.
//   - Operations creating or enumerating keys (upload, list) never reject; the
//     key or prefix is derived from the identity instead.
package authorization

import (
	"errors"
	"strings"

	"github.com/jdillenkofer/filedrop/internal/identity"
)

const (
	OperationListFiles      = "ListFiles"
	OperationGetDownloadUrl = "GetDownloadUrl"
	OperationGetUploadUrl   = "GetUploadUrl"
	OperationDeleteFile     = "DeleteFile"
)

const DefaultAdminGroup = "Admin-Group"

const userKeyPrefix = "users/"

var ErrForbidden = errors.New("forbidden")

type Engine struct {
	adminGroup string
}

func NewEngine(adminGroup string) *Engine {
	if adminGroup == "" {
		adminGroup = DefaultAdminGroup
	}
	return &Engine{
		adminGroup: adminGroup,
	}
}

// UserPrefix returns the key namespace owned by subject.
func UserPrefix(subject string) string {
	return userKeyPrefix + subject + "/"
}

func (e *Engine) IsAdmin(id *identity.Identity) bool {
	return id != nil && id.Groups.Contains(e.adminGroup)
}

// ListPrefix returns the prefix a listing must use. The requested prefix is
// only honoured for admins.
func (e *Engine) ListPrefix(id *identity.Identity, requested string) string {
	if e.IsAdmin(id) {
		return requested
	}
	return UserPrefix(id.Subject)
}

func (e *Engine) AuthorizeDownload(id *identity.Identity, key string) error {
	return e.authorizeExistingKey(id, key)
}

func (e *Engine) AuthorizeDelete(id *identity.Identity, key string) error {
	return e.authorizeExistingKey(id, key)
}

func (e *Engine) authorizeExistingKey(id *identity.Identity, key string) error {
	if e.IsAdmin(id) {
		return nil
	}
	if !strings.HasPrefix(key, UserPrefix(id.Subject)) {
		return ErrForbidden
	}
	return nil
}

// ResolveUploadKey computes the key an upload is written to. Admins write to
// path (or filename when path is absent) verbatim, everyone else always writes
// to users/{subject}/{filename}.
func (e *Engine) ResolveUploadKey(id *identity.Identity, filename string, path *string) string {
	if e.IsAdmin(id) {
		if path != nil && *path != "" {
			return *path
		}
		return filename
	}
	return UserPrefix(id.Subject) + filename
}
