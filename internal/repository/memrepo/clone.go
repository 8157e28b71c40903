package memrepo

import (
	"time"

	"github.com/quocanhngo/firechat/internal/model"
)

// clone copies a result set so consumers never alias stored documents
func clone[T any](items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = cloneDoc(item)
	}
	return out
}

func cloneDoc[T any](v T) T {
	switch doc := any(v).(type) {
	case model.UserProfile:
		return any(cloneUser(doc)).(T)
	case model.Chat:
		return any(cloneChat(doc)).(T)
	case model.Message:
		return any(cloneMessage(doc)).(T)
	case model.Invitation:
		doc.Timestamp = cloneTime(doc.Timestamp)
		return any(doc).(T)
	}
	return v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneUser(u model.UserProfile) model.UserProfile {
	u.BlockedUsers = cloneStrings(u.BlockedUsers)
	u.LastSeen = cloneTime(u.LastSeen)
	return u
}

func cloneChat(c model.Chat) model.Chat {
	c.Members = cloneStrings(c.Members)
	if c.MembersData != nil {
		data := make(map[string]model.MemberSnapshot, len(c.MembersData))
		for k, v := range c.MembersData {
			data[k] = v
		}
		c.MembersData = data
	}
	c.CreatedAt = cloneTime(c.CreatedAt)
	if c.LastMessage != nil {
		lm := *c.LastMessage
		lm.Timestamp = cloneTime(lm.Timestamp)
		c.LastMessage = &lm
	}
	return c
}

func cloneMessage(m model.Message) model.Message {
	m.Timestamp = cloneTime(m.Timestamp)
	m.DeletedFor = cloneStrings(m.DeletedFor)
	if m.Reactions != nil {
		reactions := make(map[string][]string, len(m.Reactions))
		for k, v := range m.Reactions {
			reactions[k] = cloneStrings(v)
		}
		m.Reactions = reactions
	}
	if m.ReadBy != nil {
		readBy := make(map[string]time.Time, len(m.ReadBy))
		for k, v := range m.ReadBy {
			readBy[k] = v
		}
		m.ReadBy = readBy
	}
	if m.ReplyTo != nil {
		r := *m.ReplyTo
		m.ReplyTo = &r
	}
	return m
}

func addString(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

func removeString(list []string, v string) []string {
	out := list[:0:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
