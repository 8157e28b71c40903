package realtime

import (
	"sort"

	"github.com/quocanhngo/firechat/internal/model"
)

// InvitationList keeps the viewer's pending invitations, newest first.
// Resolved invitations drop out only when the store re-delivers them.
func InvitationList(viewer string, snapshot []model.Invitation) model.InvitationListView {
	out := make([]model.Invitation, 0, len(snapshot))
	for _, inv := range snapshot {
		if inv.ToUID == viewer && inv.Status == model.InvitationPending {
			out = append(out, inv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].Timestamp, out[j].Timestamp
		switch {
		case ti == nil && tj == nil:
			return out[i].ID < out[j].ID
		case ti == nil:
			return true
		case tj == nil:
			return false
		case !ti.Equal(*tj):
			return ti.After(*tj)
		}
		return out[i].ID < out[j].ID
	})
	return model.InvitationListView{Invitations: out}
}
