package meeting

import (
	"testing"

	"github.com/dkeye/confcore/internal/domain"
)

func TestDerivePermissions_HostGetsFullControlRegardlessOfSettings(t *testing.T) {
	m := &domain.Meeting{HostUserID: "host-1", Settings: domain.Settings{EnableChat: false, EnableScreenShare: false}}
	p := &domain.Participant{UserID: "host-1", Role: domain.RoleHost}

	perms := DerivePermissions(m, p, "host-1")
	if !perms.IsHost || !perms.CanRecord || !perms.CanChat || !perms.CanScreenShare || !perms.CanMuteOthers || !perms.CanRemoveOthers {
		t.Fatalf("host permissions incomplete: %+v", perms)
	}
}

func TestDerivePermissions_PlainParticipantFollowsMeetingSettings(t *testing.T) {
	m := &domain.Meeting{HostUserID: "host-1", Settings: domain.Settings{EnableChat: true, EnableScreenShare: false}}
	p := &domain.Participant{UserID: "attendee-1", Role: domain.RoleParticipant}

	perms := DerivePermissions(m, p, "attendee-1")
	if perms.IsHost || perms.CanRecord || perms.CanMuteOthers || perms.CanRemoveOthers {
		t.Fatalf("plain participant should have no elevated rights: %+v", perms)
	}
	if !perms.CanChat {
		t.Fatal("CanChat should follow settings.EnableChat=true")
	}
	if perms.CanScreenShare {
		t.Fatal("CanScreenShare should follow settings.EnableScreenShare=false")
	}
}

func TestDerivePermissions_PerParticipantOverrideGrantsRecord(t *testing.T) {
	m := &domain.Meeting{HostUserID: "host-1"}
	p := &domain.Participant{UserID: "attendee-1", Role: domain.RoleParticipant, Permissions: domain.Permissions{CanRecord: true}}

	perms := DerivePermissions(m, p, "attendee-1")
	if !perms.CanRecord {
		t.Fatal("explicit per-participant CanRecord override should be honored")
	}
}

func TestDerivePermissions_PreviewingNonParticipantOnlyGetsHostAndChat(t *testing.T) {
	m := &domain.Meeting{HostUserID: "host-1", Settings: domain.Settings{EnableChat: true}}

	perms := DerivePermissions(m, nil, "attendee-1")
	if perms.IsHost || perms.CanRecord || perms.CanMuteOthers || perms.CanRemoveOthers {
		t.Fatalf("non-participant preview should carry no elevated rights: %+v", perms)
	}
	if !perms.CanChat {
		t.Fatal("CanChat should still follow settings for a previewing caller")
	}
}

func TestDerivePermissions_CoHostGetsRecordAndScreenShareButNotHostControl(t *testing.T) {
	m := &domain.Meeting{HostUserID: "host-1"}
	p := &domain.Participant{UserID: "cohost-1", Role: domain.RoleCoHost}

	perms := DerivePermissions(m, p, "cohost-1")
	if perms.IsHost {
		t.Fatal("co-host should not be reported as host")
	}
	if !perms.CanRecord || !perms.CanScreenShare {
		t.Fatalf("co-host should get record+screenshare: %+v", perms)
	}
	if perms.CanMuteOthers || perms.CanRemoveOthers {
		t.Fatalf("co-host should not get mute/remove without explicit grant: %+v", perms)
	}
}
