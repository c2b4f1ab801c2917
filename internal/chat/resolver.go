package chat

import (
	"errors"
	"fmt"

	"github.com/fieldops/wms-backend/internal/database"
	"github.com/fieldops/wms-backend/internal/models"
)

// Resolver finds or creates the unique room pairing a teknisi with their
// admin regional. Matching prefers the teknisi's area and falls back to the
// region.
type Resolver struct {
	dir   Directory
	rooms RoomCreator
}

func NewResolver(dir Directory, rooms RoomCreator) *Resolver {
	return &Resolver{dir: dir, rooms: rooms}
}

// ResolveOrCreate returns the room for teknisiUsername, creating it on first
// contact. Idempotent: repeated calls return the same room. Returns
// database.ErrNotFound when the teknisi does not exist or no admin regional
// covers their area or region.
func (r *Resolver) ResolveOrCreate(teknisiUsername string) (*models.ChatRoom, error) {
	teknisi, err := r.dir.UserByUsernameAndRole(teknisiUsername, models.RoleTeknisi)
	if err != nil {
		return nil, fmt.Errorf("resolve teknisi %q: %w", teknisiUsername, err)
	}

	coordinator, err := r.dir.CoordinatorFor(teknisi.Area, teknisi.Region)
	if err != nil {
		return nil, fmt.Errorf("resolve coordinator for area %q region %q: %w",
			teknisi.Area, teknisi.Region, err)
	}

	room, err := r.rooms.RoomByPair(teknisi.Username, coordinator.Username)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	return r.rooms.CreateRoom(teknisi.Username, coordinator.Username, teknisi.Region)
}
