package runtime

import (
	"context"
	"sync"

	"github.com/samber/lo"

	"babel-relay/contract"
	"babel-relay/domain"
	"babel-relay/errors"
)

var (
	_ contract.IRegistry = (*Registry)(nil)
	_ contract.Worker    = (*Registry)(nil)
)

type RegistryConfig struct {
	MaxRooms   int
	Controller ControllerConfig
}

// Registry is the process-wide room index. Rooms are created lazily on the
// first join and their workers are started under the shared supervisor;
// RemoveIfEmpty tears them back down.
type Registry struct {
	mu         sync.RWMutex
	rooms      map[domain.RoomID]*RoomController
	deps       Deps
	cfg        RegistryConfig
	supervisor contract.ISupervisor
	ctx        context.Context
}

func NewRegistry(deps Deps, cfg RegistryConfig, supervisor contract.ISupervisor) *Registry {
	r := &Registry{
		rooms:      make(map[domain.RoomID]*RoomController),
		deps:       deps,
		cfg:        cfg,
		supervisor: supervisor,
	}
	r.deps.OnEmpty = r.RemoveIfEmpty
	return r
}

// Run captures the lifecycle context used to start room workers, then parks
// until shutdown. On shutdown every room is closed.
func (r *Registry) Run(ctx context.Context) error {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	<-ctx.Done()

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ctrl := range r.rooms {
		ctrl.Close()
		delete(r.rooms, id)
	}
	return nil
}

func (r *Registry) GetOrCreate(id domain.RoomID) (contract.IRoomController, error) {
	r.mu.RLock()
	ctrl, ok := r.rooms[id]
	running := r.ctx != nil
	r.mu.RUnlock()
	if ok {
		return ctrl, nil
	}
	if !running {
		return nil, errors.ErrNotRunning
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ctrl, ok := r.rooms[id]; ok {
		return ctrl, nil
	}
	if r.cfg.MaxRooms > 0 && len(r.rooms) >= r.cfg.MaxRooms {
		r.deps.Monitor.IncrRejectedHandshakes()
		return nil, errors.NewHandshakeError(errors.CodeServerFull,
			"room limit reached (%d)", r.cfg.MaxRooms)
	}

	ctrl = NewRoomController(id, r.deps, r.cfg.Controller)
	r.rooms[id] = ctrl
	r.supervisor.Start(r.ctx, ctrl)
	r.supervisor.Start(r.ctx, ctrl.Pump())
	r.deps.Monitor.IncrRoomsCreated()
	r.deps.Log.Info("Room created", "room", id)
	return ctrl, nil
}

func (r *Registry) Lookup(id domain.RoomID) (contract.IRoomController, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctrl, ok := r.rooms[id]
	return ctrl, ok
}

// RemoveIfEmpty destroys a room once its last participant left. The emptiness
// check happens under the registry lock, so a join racing with the teardown
// either lands before the check or gets ErrRoomClosed and retries into a
// fresh room.
func (r *Registry) RemoveIfEmpty(id domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctrl, ok := r.rooms[id]
	if !ok || ctrl.Len() > 0 {
		return
	}
	ctrl.Close()
	delete(r.rooms, id)
	r.deps.Monitor.IncrRoomsDestroyed()
	r.deps.Log.Info("Room destroyed", "room", id)
}

func (r *Registry) ListRooms() []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.rooms)
}

// Join resolves the room and performs the synchronous handshake, retrying
// when it raced a concurrent teardown of the same room id.
func (r *Registry) Join(ctx context.Context, id domain.RoomID, req domain.JoinRequest, sink contract.FrameSink) (contract.IRoomController, error) {
	for attempt := 0; attempt < 3; attempt++ {
		ctrl, err := r.GetOrCreate(id)
		if err != nil {
			return nil, err
		}
		err = ctrl.Join(ctx, req, sink)
		if errors.Is(err, errors.ErrRoomClosed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return ctrl, nil
	}
	return nil, errors.ErrRoomClosed
}
