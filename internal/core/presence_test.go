package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceJoinedBroadcastsListThenNotice(t *testing.T) {
	r := NewRegistry()
	gw := newRecordingGateway()
	p := NewPresence(r, gw)

	r.Bind("c1", "alice")
	p.Joined("alice", "c1", "", "")

	assert.Equal(t, []EventKind{EventUserList, EventUserJoined}, gw.kinds())
	assert.Equal(t, []PresenceEntry{{Identity: "alice", ConnectionID: "c1"}}, gw.broadcasts[0].Presence)
	assert.Equal(t, &PresenceEntry{Identity: "alice", ConnectionID: "c1"}, gw.broadcasts[1].User)
}

func TestPresenceTypingRequiresIdentity(t *testing.T) {
	r := NewRegistry()
	gw := newRecordingGateway()
	p := NewPresence(r, gw)

	p.SetTyping("c1", true)
	p.SetTyping("c1", false)
	assert.Empty(t, gw.broadcasts)
	assert.Empty(t, p.TypingUsers())

	r.Bind("c1", "bob")
	r.Bind("c2", "alice")
	p.SetTyping("c1", true)
	p.SetTyping("c2", true)
	require.Len(t, gw.broadcasts, 2)
	assert.Equal(t, []string{"alice", "bob"}, gw.broadcasts[1].Typing)

	p.SetTyping("c1", false)
	require.Len(t, gw.broadcasts, 3)
	assert.Equal(t, []string{"alice"}, gw.broadcasts[2].Typing)
}

func TestPresenceLeftClearsTyping(t *testing.T) {
	r := NewRegistry()
	gw := newRecordingGateway()
	p := NewPresence(r, gw)

	r.Bind("c1", "alice")
	p.SetTyping("c1", true)
	gw.reset()

	r.Unbind("c1")
	p.Left("alice", "c1", true)

	assert.Equal(t, []EventKind{EventUserList, EventUserLeft, EventTypingUsers}, gw.kinds())
	assert.Empty(t, gw.broadcasts[0].Presence)
	assert.Empty(t, gw.broadcasts[2].Typing)
	assert.Empty(t, p.TypingUsers())
}

func TestPresenceOrphanLeavesSilently(t *testing.T) {
	r := NewRegistry()
	gw := newRecordingGateway()
	p := NewPresence(r, gw)

	r.Bind("c1", "alice")
	r.Bind("c2", "alice")
	p.Left("", "c1", false)

	assert.Equal(t, []EventKind{EventUserList, EventTypingUsers}, gw.kinds())
	assert.Equal(t, []PresenceEntry{{Identity: "alice", ConnectionID: "c2"}}, gw.broadcasts[0].Presence)
}

func TestPresenceRenameReleasesOldIdentity(t *testing.T) {
	r := NewRegistry()
	gw := newRecordingGateway()
	p := NewPresence(r, gw)

	r.Bind("c1", "alice")
	p.SetTyping("c1", true)
	gw.reset()

	r.Bind("c1", "alicia")
	p.Joined("alicia", "c1", "alice", "")

	assert.Equal(t, []EventKind{EventUserList, EventUserLeft, EventUserJoined, EventTypingUsers}, gw.kinds())
	assert.Equal(t, []PresenceEntry{{Identity: "alicia", ConnectionID: "c1"}}, gw.broadcasts[0].Presence)
	assert.Equal(t, &PresenceEntry{Identity: "alice", ConnectionID: "c1"}, gw.broadcasts[1].User)
	assert.Empty(t, gw.broadcasts[3].Typing)
	assert.Empty(t, p.TypingUsers())
}

func TestPresenceSupersededConnectionStopsTyping(t *testing.T) {
	r := NewRegistry()
	gw := newRecordingGateway()
	p := NewPresence(r, gw)

	r.Bind("c1", "alice")
	r.Bind("c2", "bob")
	p.SetTyping("c1", true)
	p.SetTyping("c2", true)
	gw.reset()

	r.Bind("c3", "alice")
	p.Joined("alice", "c3", "", "c1")

	assert.Equal(t, []EventKind{EventUserList, EventUserJoined, EventTypingUsers}, gw.kinds())
	assert.Equal(t, []string{"bob"}, gw.broadcasts[2].Typing)

	// A plain join touches nothing else.
	gw.reset()
	r.Bind("c4", "dave")
	p.Joined("dave", "c4", "", "")
	assert.Equal(t, []EventKind{EventUserList, EventUserJoined}, gw.kinds())
	assert.Equal(t, []string{"bob"}, p.TypingUsers())
}
