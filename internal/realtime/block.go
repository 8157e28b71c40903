package realtime

import "github.com/quocanhngo/firechat/internal/model"

const (
	NoticeBlockedByMe   = "You have blocked this user. Unblock to send messages."
	NoticeBlockedByPeer = "You cannot message this user."
)

// BlockState is derived from both profiles of a one-to-one chat.
// Each side only ever writes its own blockedUsers.
type BlockState struct {
	BlockedByMe  bool
	HasBlockedMe bool
}

// ComputeBlockState reads the flag pair for viewer and peer. Each flag comes
// from the profile that owns it, so a missing profile only drops its own flag.
func ComputeBlockState(viewer, peer string, self, peerProfile *model.UserProfile) BlockState {
	var st BlockState
	if self != nil {
		st.BlockedByMe = self.HasBlocked(peer)
	}
	if peerProfile != nil {
		st.HasBlockedMe = peerProfile.HasBlocked(viewer)
	}
	return st
}

// CanSend is false when either side blocked the other
func (s BlockState) CanSend() bool {
	return !s.BlockedByMe && !s.HasBlockedMe
}

// Notice is the text shown in place of the composer
func (s BlockState) Notice() string {
	switch {
	case s.BlockedByMe:
		return NoticeBlockedByMe
	case s.HasBlockedMe:
		return NoticeBlockedByPeer
	}
	return ""
}

func (s BlockState) View(chatID string) model.BlockStateView {
	return model.BlockStateView{
		ChatID:       chatID,
		BlockedByMe:  s.BlockedByMe,
		HasBlockedMe: s.HasBlockedMe,
		CanSend:      s.CanSend(),
		Notice:       s.Notice(),
	}
}
