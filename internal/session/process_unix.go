//go:build !windows

package session

import "syscall"

// credentialSysProcAttr returns the SysProcAttr that drops the child's
// privilege to the target account: uid, primary gid, and supplementary
// groups. Both the X server and the window manager get the same
// treatment — the spec requires supplementary groups on both, since X
// commonly needs membership in video/input-adjacent groups when running
// rootless (the teacher's daemonSysProcAttr only ever sets Setpgid,
// because gc never drops privilege; this is the same struct extended
// with a Credential).
func credentialSysProcAttr(account Account) *syscall.SysProcAttr {
	groups := make([]uint32, len(account.Groups))
	copy(groups, account.Groups)
	return &syscall.SysProcAttr{
		Setpgid: true,
		Credential: &syscall.Credential{
			Uid:    account.UID,
			Gid:    account.GID,
			Groups: groups,
		},
	}
}
