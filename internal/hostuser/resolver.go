// Package hostuser resolves accounts from the host user database,
// including supplementary group membership, the way
// original_source/src/common/account.rs does via nix::unistd::User +
// users::get_user_groups.
package hostuser

import (
	"os/user"
	"strconv"

	"github.com/illgrenoble/webx-session-manager/internal/session"
)

// Resolver implements session.AccountResolver against the host's
// passwd/group database (NSS-backed via os/user, which already
// transparently supports LDAP/sssd-backed setups the same way PAM
// does).
type Resolver struct{}

// NewResolver returns a ready-to-use Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Lookup resolves username to an Account. Supplementary groups are
// filtered the way the original implementation does: only the root
// group (gid 0) is kept if the account itself is root; for every other
// account, gid-0 memberships are dropped (they're an NSS artifact, not a
// meaningful supplementary group).
func (Resolver) Lookup(username string) (session.Account, bool, error) {
	u, err := user.Lookup(username)
	if err != nil {
		if _, ok := err.(user.UnknownUserError); ok {
			return session.Account{}, false, nil
		}
		return session.Account{}, false, err
	}

	uid64, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return session.Account{}, false, err
	}
	gid64, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return session.Account{}, false, err
	}
	uid := uint32(uid64)
	gid := uint32(gid64)

	groupIDs, err := u.GroupIds()
	if err != nil {
		return session.Account{}, false, err
	}

	groups := make([]uint32, 0, len(groupIDs))
	for _, g := range groupIDs {
		n, err := strconv.ParseUint(g, 10, 32)
		if err != nil {
			continue
		}
		gn := uint32(n)
		if uid == 0 {
			groups = append(groups, gn)
			continue
		}
		if gn > 0 {
			groups = append(groups, gn)
		}
	}

	return session.Account{
		Username: u.Username,
		Home:     u.HomeDir,
		UID:      uid,
		GID:      gid,
		Groups:   groups,
	}, true, nil
}

var _ session.AccountResolver = Resolver{}
