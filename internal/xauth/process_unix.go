//go:build !windows

package xauth

import (
	"syscall"

	"github.com/illgrenoble/webx-session-manager/internal/session"
)

// credentialSysProcAttr drops the xauth invocation's privilege to the
// target account, the same pattern as internal/session's spawn
// contract — xauth must write into a file owned by the target uid.
func credentialSysProcAttr(account session.Account) *syscall.SysProcAttr {
	groups := make([]uint32, len(account.Groups))
	copy(groups, account.Groups)
	return &syscall.SysProcAttr{
		Credential: &syscall.Credential{
			Uid:    account.UID,
			Gid:    account.GID,
			Groups: groups,
		},
	}
}
