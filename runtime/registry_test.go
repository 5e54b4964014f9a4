package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"babel-relay/domain"
	"babel-relay/domain/frame"
	"babel-relay/errors"
)

func TestRegistry_RoomsAreCreatedLazily(t *testing.T) {
	req := require.New(t)
	rig := newRig(t, RegistryConfig{})

	req.Empty(rig.reg.ListRooms())
	rig.join(t, "r1", "alice", "en")
	req.Equal([]domain.RoomID{"r1"}, rig.reg.ListRooms())

	_, ok := rig.reg.Lookup("r1")
	req.True(ok)
	_, ok = rig.reg.Lookup("nope")
	req.False(ok)
}

func TestRegistry_DuplicateParticipantRejected(t *testing.T) {
	req := require.New(t)
	rig := newRig(t, RegistryConfig{})

	rig.join(t, "r1", "alice", "en")

	_, err := rig.reg.Join(context.Background(), "r1",
		domain.JoinRequest{ParticipantID: "alice", Language: "fr"}, &fakeSink{})

	he, ok := errors.AsHandshakeError(err)
	req.True(ok)
	req.Equal(errors.CodeDuplicateID, he.Code)
}

func TestRegistry_RoomCapacityEnforced(t *testing.T) {
	req := require.New(t)
	rig := newRig(t, RegistryConfig{Controller: ControllerConfig{MaxParticipants: 2}})

	rig.join(t, "r1", "alice", "en")
	rig.join(t, "r1", "bob", "es")

	_, err := rig.reg.Join(context.Background(), "r1",
		domain.JoinRequest{ParticipantID: "carol", Language: "fr"}, &fakeSink{})

	he, ok := errors.AsHandshakeError(err)
	req.True(ok)
	req.Equal(errors.CodeRoomFull, he.Code)
}

func TestRegistry_RoomLimitEnforced(t *testing.T) {
	req := require.New(t)
	rig := newRig(t, RegistryConfig{MaxRooms: 1})

	rig.join(t, "r1", "alice", "en")

	_, err := rig.reg.Join(context.Background(), "r2",
		domain.JoinRequest{ParticipantID: "bob", Language: "es"}, &fakeSink{})

	he, ok := errors.AsHandshakeError(err)
	req.True(ok)
	req.Equal(errors.CodeServerFull, he.Code)
}

func TestRegistry_EmptyRoomIsDestroyed(t *testing.T) {
	req := require.New(t)
	rig := newRig(t, RegistryConfig{})

	ctrl, _ := rig.join(t, "r1", "alice", "en")
	_, bobSink := rig.join(t, "r1", "bob", "es")

	ctrl.Submit(domain.LeaveCommand{Room: "r1", ParticipantID: "alice", Reason: "idle"})

	// The remaining member hears about the departure
	req.Eventually(func() bool {
		for _, f := range bobSink.Frames() {
			if p, ok := f.(frame.Presence); ok && p.Type == frame.TypeUserLeft && p.ParticipantID == "alice" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	ctrl.Submit(domain.LeaveCommand{Room: "r1", ParticipantID: "bob", Reason: "closed"})

	// Once the last participant leaves, the room disappears
	req.Eventually(func() bool { return len(rig.reg.ListRooms()) == 0 }, time.Second, 5*time.Millisecond)
	req.Equal(uint64(1), rig.monitor.Snapshot().RoomsDestroyed)

	// A later join to the same id mints a fresh room
	ctrl2, _ := rig.join(t, "r1", "carol", "fr")
	req.Equal(1, ctrl2.Len())
}

func TestRegistry_RejoinAfterCleanLeaveAccepted(t *testing.T) {
	req := require.New(t)
	rig := newRig(t, RegistryConfig{})

	ctrl, _ := rig.join(t, "r1", "alice", "en")
	rig.join(t, "r1", "bob", "es")

	ctrl.Submit(domain.LeaveCommand{Room: "r1", ParticipantID: "alice", Reason: "left"})
	req.Eventually(func() bool { return ctrl.Len() == 1 }, time.Second, 5*time.Millisecond)

	// Same id coming back is a fresh join, not a duplicate
	ctrl2, _ := rig.join(t, "r1", "alice", "fr")
	req.Equal(2, ctrl2.Len())
}
