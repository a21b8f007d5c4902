package core

import (
	"errors"
	"testing"
)

type fakeConn struct {
	sent   []Frame
	failOn int
	calls  int
	closed bool
}

func (c *fakeConn) TrySend(f Frame) error {
	c.calls++
	if c.failOn != 0 && c.calls >= c.failOn {
		return errors.New("send buffer full")
	}
	c.sent = append(c.sent, f)
	return nil
}

func (c *fakeConn) Close() { c.closed = true }

func TestRoom_AddRemoveMemberTracksCount(t *testing.T) {
	r := NewRoom("AAA-111-BBB")
	r.AddMember(&Member{SocketID: "s1", UserID: "u1", Conn: &fakeConn{}})
	r.AddMember(&Member{SocketID: "s2", UserID: "u2", Conn: &fakeConn{}})
	if r.MemberCount() != 2 {
		t.Fatalf("MemberCount = %d, want 2", r.MemberCount())
	}

	m, ok := r.RemoveMember("s1")
	if !ok || m.UserID != "u1" {
		t.Fatalf("RemoveMember(s1) = %+v, %v", m, ok)
	}
	if r.MemberCount() != 1 {
		t.Fatalf("MemberCount after remove = %d, want 1", r.MemberCount())
	}
	if !r.IsEmpty() && r.MemberCount() != 1 {
		t.Fatal("room state inconsistent")
	}
}

func TestRoom_RemoveMemberUnknownSocketIsANoOp(t *testing.T) {
	r := NewRoom("AAA-111-BBB")
	_, ok := r.RemoveMember("ghost")
	if ok {
		t.Fatal("removing an unknown socket should report ok=false")
	}
}

func TestRoom_FindByUserResolvesAnyOfThatUsersSockets(t *testing.T) {
	r := NewRoom("AAA-111-BBB")
	r.AddMember(&Member{SocketID: "s1", UserID: "u1", Conn: &fakeConn{}})
	r.AddMember(&Member{SocketID: "s2", UserID: "u1", Conn: &fakeConn{}}) // second tab

	m, ok := r.FindByUser("u1")
	if !ok || m.UserID != "u1" {
		t.Fatalf("FindByUser(u1) = %+v, %v", m, ok)
	}

	if _, ok := r.FindByUser("u-unknown"); ok {
		t.Fatal("FindByUser should report false for a user with no sockets in the room")
	}
}

func TestRoom_FindByUserResolvesRemainingSocketAfterOneTabCloses(t *testing.T) {
	r := NewRoom("AAA-111-BBB")
	r.AddMember(&Member{SocketID: "s1", UserID: "u1", Conn: &fakeConn{}})
	r.AddMember(&Member{SocketID: "s2", UserID: "u1", Conn: &fakeConn{}})
	r.RemoveMember("s1")

	m, ok := r.FindByUser("u1")
	if !ok || m.SocketID != "s2" {
		t.Fatalf("FindByUser(u1) after closing s1 = %+v, %v, want s2", m, ok)
	}
}

func TestRoom_SnapshotDTOExcludesTheGivenSocket(t *testing.T) {
	r := NewRoom("AAA-111-BBB")
	r.AddMember(&Member{SocketID: "s1", UserID: "u1", Username: "alice", Conn: &fakeConn{}})
	r.AddMember(&Member{SocketID: "s2", UserID: "u2", Username: "bob", Conn: &fakeConn{}})

	dtos := r.SnapshotDTO("s1")
	if len(dtos) != 1 || dtos[0].SocketID != "s2" || dtos[0].UserID != "u2" {
		t.Fatalf("SnapshotDTO(s1) = %+v, want only s2's entry", dtos)
	}
}

func TestRoom_BroadcastSkipsSenderAndReportsDrops(t *testing.T) {
	r := NewRoom("AAA-111-BBB")
	senderConn := &fakeConn{}
	failing := &fakeConn{failOn: 1}
	healthy := &fakeConn{}
	r.AddMember(&Member{SocketID: "sender", UserID: "u1", Conn: senderConn})
	r.AddMember(&Member{SocketID: "bad", UserID: "u2", Conn: failing})
	r.AddMember(&Member{SocketID: "good", UserID: "u3", Conn: healthy})

	sent, dropped := r.Broadcast("sender", Frame("hi"))
	if sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}
	if len(dropped) != 1 || dropped[0] != "bad" {
		t.Fatalf("dropped = %v, want [bad]", dropped)
	}
	if len(senderConn.sent) != 0 {
		t.Fatal("Broadcast should never send back to the originating socket")
	}
	if len(healthy.sent) != 1 {
		t.Fatal("healthy connection should have received the frame")
	}
}

func TestRoom_BroadcastAllIncludesTheSender(t *testing.T) {
	r := NewRoom("AAA-111-BBB")
	senderConn := &fakeConn{}
	r.AddMember(&Member{SocketID: "sender", UserID: "u1", Conn: senderConn})
	r.AddMember(&Member{SocketID: "other", UserID: "u2", Conn: &fakeConn{}})

	sent, dropped := r.BroadcastAll(Frame("hi"))
	if sent != 2 || len(dropped) != 0 {
		t.Fatalf("sent=%d dropped=%v, want sent=2 dropped=[]", sent, dropped)
	}
	if len(senderConn.sent) != 1 {
		t.Fatal("BroadcastAll should also deliver to the sender's own socket")
	}
}
