package service

import (
	"sort"
	"strings"

	"github.com/alumnihub/alumni-backend/internal/domain"
)

// UnknownUserName is shown for peers missing from the candidate list
const UnknownUserName = "Unknown User"

// CandidateRoles returns the roles a user of role r may chat with
func CandidateRoles(r domain.Role) []domain.Role {
	switch r {
	case domain.RoleStudent:
		return []domain.Role{domain.RoleTeacher}
	case domain.RoleTeacher:
		return []domain.Role{domain.RoleStudent}
	case domain.RoleAlumni:
		return []domain.Role{domain.RoleStudent, domain.RoleTeacher}
	}
	return nil
}

// AggregateConversations groups messages by peer and merges in candidates without history.
// Conversations with history come first, newest last message first; the rest follow by display name.
// It performs no I/O and does not modify its inputs.
func AggregateConversations(selfID string, messages []*domain.Message, candidates []domain.DirectoryUser) []domain.ConversationSummary {
	directory := make(map[string]domain.DirectoryUser, len(candidates))
	for _, c := range candidates {
		if c.ID == "" || c.ID == selfID {
			continue
		}
		directory[c.ID] = c
	}

	type group struct {
		last   *domain.Message
		unread int
	}
	groups := make(map[string]*group)
	for _, m := range messages {
		if m == nil || (m.SenderID != selfID && m.ReceiverID != selfID) {
			continue
		}
		peer := m.PeerOf(selfID)
		if peer == "" || peer == selfID {
			continue
		}
		g, ok := groups[peer]
		if !ok {
			g = &group{}
			groups[peer] = g
		}
		if g.last == nil || newer(m, g.last) {
			g.last = m
		}
		if m.ReceiverID == selfID && !m.Read {
			g.unread++
		}
	}

	withHistory := make([]domain.ConversationSummary, 0, len(groups))
	for peer, g := range groups {
		s := domain.ConversationSummary{
			PeerUserID:      peer,
			PeerDisplayName: UnknownUserName,
			LastMessage: &domain.MessagePreview{
				Content:   g.last.Content,
				CreatedAt: g.last.CreatedAt,
				SenderID:  g.last.SenderID,
			},
			UnreadCount: g.unread,
		}
		if u, ok := directory[peer]; ok {
			s.PeerDisplayName = u.DisplayName
			s.PeerRole = u.Role
		}
		withHistory = append(withHistory, s)
	}
	sort.Slice(withHistory, func(i, j int) bool {
		a, b := withHistory[i].LastMessage.CreatedAt, withHistory[j].LastMessage.CreatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return withHistory[i].PeerUserID < withHistory[j].PeerUserID
	})

	rest := make([]domain.ConversationSummary, 0, len(directory))
	for id, u := range directory {
		if _, ok := groups[id]; ok {
			continue
		}
		rest = append(rest, domain.ConversationSummary{
			PeerUserID:      id,
			PeerDisplayName: u.DisplayName,
			PeerRole:        u.Role,
		})
	}
	sort.Slice(rest, func(i, j int) bool {
		a, b := strings.ToLower(rest[i].PeerDisplayName), strings.ToLower(rest[j].PeerDisplayName)
		if a != b {
			return a < b
		}
		return rest[i].PeerUserID < rest[j].PeerUserID
	})

	return append(withHistory, rest...)
}

func newer(a, b *domain.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
