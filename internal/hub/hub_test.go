package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"platform-party-server/internal/protocol"
	"platform-party-server/internal/room"
)

type nopDir struct{}

func (nopDir) RoomCreated(protocol.RoomSummary) {}
func (nopDir) RoomUpdated(protocol.RoomSummary) {}
func (nopDir) RoomClosed(string)                {}

func TestHub_Ensure_Get_SamePointer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, nopDir{}, zap.NewNop())
	reply := make(chan *room.Room, 1)

	h.Inbox() <- EnsureRoom{Code: "ZED123", Reply: reply}
	rm1 := <-reply

	h.Inbox() <- GetRoom{Code: "ZED123", Reply: reply}
	rm2 := <-reply

	require.NotNil(t, rm1)
	require.Same(t, rm1, rm2)
}

func TestHub_GetUnknownIsNil(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, nopDir{}, zap.NewNop())

	reply := make(chan *room.Room, 1)
	h.Inbox() <- GetRoom{Code: "NOPE", Reply: reply}
	require.Nil(t, <-reply)
}

func TestHub_EnsureReplacesDeadRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, nopDir{}, zap.NewNop())

	reply := make(chan *room.Room, 1)
	h.Inbox() <- EnsureRoom{Code: "ABC123", Reply: reply}
	rm1 := <-reply

	// Empty -> Active -> Empty: the room tears itself down.
	out := make(chan protocol.ServerMessage, 8)
	joinReply := make(chan room.JoinResult, 1)
	rm1.Inbox() <- room.Join{ConnID: "c1", Name: "Alice", Outbox: out, Reply: joinReply}
	<-joinReply
	rm1.Inbox() <- room.Leave{ConnID: "c1"}

	select {
	case <-rm1.Done():
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for room teardown")
	}

	// A fresh join with the same code gets a fresh actor.
	h.Inbox() <- EnsureRoom{Code: "ABC123", Reply: reply}
	rm2 := <-reply
	require.NotNil(t, rm2)
	require.NotSame(t, rm1, rm2)
}
