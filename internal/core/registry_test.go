package core

import "testing"

func TestRoomManager_GetOrCreateReusesTheSameRoom(t *testing.T) {
	rm := NewRoomManager()
	a := rm.GetOrCreate("AAA-111-BBB")
	b := rm.GetOrCreate("AAA-111-BBB")
	if a != b {
		t.Fatal("GetOrCreate should return the same *Room for the same meeting id")
	}
}

func TestRoomManager_DropIfEmptyRemovesOnlyEmptyRooms(t *testing.T) {
	rm := NewRoomManager()
	room := rm.GetOrCreate("AAA-111-BBB")
	room.AddMember(&Member{SocketID: "s1", UserID: "u1", Conn: &fakeConn{}})

	rm.DropIfEmpty("AAA-111-BBB")
	if _, ok := rm.Get("AAA-111-BBB"); !ok {
		t.Fatal("a room with members should not be dropped")
	}

	room.RemoveMember("s1")
	rm.DropIfEmpty("AAA-111-BBB")
	if _, ok := rm.Get("AAA-111-BBB"); ok {
		t.Fatal("an empty room should be dropped")
	}
}

func TestRegistry_BindGetUnbind(t *testing.T) {
	r := NewRegistry()
	conn := &fakeConn{}
	r.Bind("s1", "u1", "alice", conn)

	uid, username, meetingID, gotConn, ok := r.Get("s1")
	if !ok || uid != "u1" || username != "alice" || meetingID != "" || gotConn != conn {
		t.Fatalf("Get(s1) = %v %v %v %v %v", uid, username, meetingID, gotConn, ok)
	}

	r.Unbind("s1")
	if _, _, _, _, ok := r.Get("s1"); ok {
		t.Fatal("Get should report false after Unbind")
	}
}

func TestRegistry_SetAndClearMeeting(t *testing.T) {
	r := NewRegistry()
	r.Bind("s1", "u1", "alice", &fakeConn{})

	if _, ok := r.MeetingOf("s1"); ok {
		t.Fatal("MeetingOf should report false before a meeting is set")
	}

	r.SetMeeting("s1", "AAA-111-BBB")
	meetingID, ok := r.MeetingOf("s1")
	if !ok || meetingID != "AAA-111-BBB" {
		t.Fatalf("MeetingOf(s1) = %q, %v, want AAA-111-BBB", meetingID, ok)
	}

	r.ClearMeeting("s1")
	if _, ok := r.MeetingOf("s1"); ok {
		t.Fatal("MeetingOf should report false after ClearMeeting")
	}
}

func TestRegistry_SetMeetingOnUnboundSocketIsANoOp(t *testing.T) {
	r := NewRegistry()
	r.SetMeeting("ghost", "AAA-111-BBB")
	if _, ok := r.MeetingOf("ghost"); ok {
		t.Fatal("setting a meeting on an unbound socket should have no effect")
	}
}
