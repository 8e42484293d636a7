package routing

import "github.com/sindbad/engage/internal/model"

// Expand resolves a requested channel into the ordered list of concrete
// candidate channels. "multi" fans out to whatsapp, sms, email in that
// order, pruned by the recipient's consent flags; a concrete channel
// passes through untouched so the dispatcher can report a per-channel
// skip instead of silently dropping the request. Quota is not applied
// here: the trailing count has to be read under the dispatch
// transaction's row lock.
func Expand(requested model.Channel, u *model.User) []model.Channel {
	if requested != model.ChannelMulti {
		return []model.Channel{requested}
	}
	var out []model.Channel
	if u.OptIn {
		out = append(out, model.ChannelWhatsApp, model.ChannelSMS)
	}
	if u.OptInEmail {
		out = append(out, model.ChannelEmail)
	}
	return out
}
