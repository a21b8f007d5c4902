package meeting

import "github.com/dkeye/confcore/internal/domain"

// DerivedPermissions is the view returned to clients after every state
// machine operation (spec §4.E "Permission derivation").
type DerivedPermissions struct {
	IsHost          bool `json:"isHost"`
	CanRecord       bool `json:"canRecord"`
	CanChat         bool `json:"canChat"`
	CanScreenShare  bool `json:"canScreenShare"`
	CanMuteOthers   bool `json:"canMuteOthers"`
	CanRemoveOthers bool `json:"canRemoveOthers"`
}

// DerivePermissions computes the caller's effective permission set for m.
// p may be nil (caller has not joined yet, e.g. previewing a scheduled
// meeting): only IsHost and CanChat are then meaningful.
func DerivePermissions(m *domain.Meeting, p *domain.Participant, callerID domain.UserID) DerivedPermissions {
	isHost := m.HostUserID == callerID
	isCoHost := false
	if p != nil {
		if p.Role == domain.RoleHost {
			isHost = true
		}
		isCoHost = p.Role == domain.RoleCoHost
	}

	out := DerivedPermissions{
		IsHost:  isHost,
		CanChat: isHost || m.Settings.EnableChat,
	}
	out.CanRecord = isHost || isCoHost
	out.CanScreenShare = isHost || isCoHost || m.Settings.EnableScreenShare
	if p != nil {
		out.CanRecord = out.CanRecord || p.Permissions.CanRecord
		out.CanMuteOthers = isHost || p.Permissions.CanMuteOthers
		out.CanRemoveOthers = isHost || p.Permissions.CanRemoveOthers
	} else {
		out.CanMuteOthers = isHost
		out.CanRemoveOthers = isHost
	}
	return out
}
