// Package store holds the device-local persistence layer: conversations,
// notifications, posts and the social graph, all kept as JSON values in the
// key-value store. Public operations fail soft: storage errors are logged
// and callers get a safe default, never an error.
package store

import (
	"context"
	"sort"
	"strings"

	"conecta/internal/events"
	"conecta/internal/kvstore"
	"conecta/internal/middleware"
	"conecta/internal/models"
)

const conversationKeyPrefix = "conversation_"

// ConversationKey derives the canonical storage key for a pair of user ids.
// The ids are sorted so both participants compute the same key.
func ConversationKey(idA, idB string) string {
	if idB < idA {
		idA, idB = idB, idA
	}
	return conversationKeyPrefix + idA + "_" + idB
}

// ConversationSummary feeds the chats-list screen.
type ConversationSummary struct {
	Key         string          `json:"key"`
	PeerID      string          `json:"peerId"`
	LastMessage *models.Message `json:"lastMessage,omitempty"`
	UnreadCount int             `json:"unreadCount"`
}

// ConversationStore persists ordered pairwise message histories.
type ConversationStore struct {
	kv    kvstore.Store
	bus   *events.Bus
	locks *keyedMutex
}

func NewConversationStore(kv kvstore.Store, bus *events.Bus) *ConversationStore {
	return &ConversationStore{kv: kv, bus: bus, locks: newKeyedMutex()}
}

// LoadMessages returns the conversation between selfID and otherID sorted
// ascending by timestamp. Absent or unparseable data yields an empty slice.
func (s *ConversationStore) LoadMessages(ctx context.Context, selfID, otherID string) []models.Message {
	key := ConversationKey(selfID, otherID)
	return s.loadSorted(ctx, key)
}

func (s *ConversationStore) loadSorted(ctx context.Context, key string) []models.Message {
	var msgs []models.Message
	found, err := kvstore.GetJSON(ctx, s.kv, key, &msgs)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "conversation load failed, returning empty list",
			"key", key, "error", err)
		return []models.Message{}
	}
	if !found || msgs == nil {
		return []models.Message{}
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].SentAt().Before(msgs[j].SentAt())
	})
	return msgs
}

// AppendMessage appends msg to the conversation and writes the full list
// back. Returns the updated, sorted list.
func (s *ConversationStore) AppendMessage(ctx context.Context, selfID, otherID string, msg models.Message) []models.Message {
	key := ConversationKey(selfID, otherID)
	unlock := s.locks.Lock(key)
	defer unlock()

	msgs := s.loadSorted(ctx, key)
	msgs = append(msgs, msg)

	if err := kvstore.SetJSON(ctx, s.kv, key, msgs); err != nil {
		middleware.Logger.ErrorContext(ctx, "conversation write failed, message not persisted",
			"key", key, "message_id", msg.ID, "error", err)
		return msgs
	}

	s.bus.Emit(ctx, events.ConversationUpdated, key)
	return msgs
}

// MarkAllReceivedAsRead flips read to true on every message addressed to
// selfID and returns the updated list. Calling it again changes nothing.
func (s *ConversationStore) MarkAllReceivedAsRead(ctx context.Context, selfID, otherID string) []models.Message {
	key := ConversationKey(selfID, otherID)
	unlock := s.locks.Lock(key)
	defer unlock()

	msgs := s.loadSorted(ctx, key)

	changed := false
	for i := range msgs {
		if msgs[i].ReceiverID == selfID && !msgs[i].Read {
			msgs[i].Read = true
			changed = true
		}
	}
	if !changed {
		return msgs
	}

	if err := kvstore.SetJSON(ctx, s.kv, key, msgs); err != nil {
		middleware.Logger.ErrorContext(ctx, "conversation write failed, read state not persisted",
			"key", key, "error", err)
		return msgs
	}

	s.bus.Emit(ctx, events.ConversationUpdated, key)
	return msgs
}

// DeleteConversation removes the conversation key entirely.
func (s *ConversationStore) DeleteConversation(ctx context.Context, selfID, otherID string) {
	key := ConversationKey(selfID, otherID)
	unlock := s.locks.Lock(key)
	defer unlock()

	if err := s.kv.Remove(ctx, key); err != nil {
		middleware.Logger.ErrorContext(ctx, "conversation delete failed",
			"key", key, "error", err)
		return
	}
	s.bus.Emit(ctx, events.ConversationUpdated, key)
}

// Summaries builds the chats-list view for selfID: one entry per stored
// conversation selfID participates in, newest conversation first. The peer
// is taken from message envelopes rather than the key because user ids may
// themselves contain the key separator.
func (s *ConversationStore) Summaries(ctx context.Context, selfID string) []ConversationSummary {
	keys, err := s.kv.ListKeys(ctx, conversationKeyPrefix)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "conversation key listing failed",
			"error", err)
		return []ConversationSummary{}
	}

	summaries := make([]ConversationSummary, 0, len(keys))
	for _, key := range keys {
		if !strings.Contains(key, selfID) {
			continue
		}

		msgs := s.loadSorted(ctx, key)
		if len(msgs) == 0 {
			continue
		}

		peerID := ""
		unread := 0
		for _, m := range msgs {
			switch {
			case m.SenderID == selfID:
				peerID = m.ReceiverID
			case m.ReceiverID == selfID:
				peerID = m.SenderID
			}
			if m.ReceiverID == selfID && !m.Read {
				unread++
			}
		}
		if peerID == "" {
			// selfID only matched as a substring of another id.
			continue
		}

		last := msgs[len(msgs)-1]
		summaries = append(summaries, ConversationSummary{
			Key:         key,
			PeerID:      peerID,
			LastMessage: &last,
			UnreadCount: unread,
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastMessage.SentAt().After(summaries[j].LastMessage.SentAt())
	})
	return summaries
}
