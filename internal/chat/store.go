package chat

import "github.com/fieldops/wms-backend/internal/models"

// Store is the slice of the persistence layer the realtime loop mutates.
// Implemented by *database.Store; tests substitute an in-memory fake.
type Store interface {
	RoomByID(id int) (*models.ChatRoom, error)
	AppendMessage(m *models.ChatMessage) (*models.ChatMessage, error)
	MarkRead(roomID int, role, readerUsername string) error
}

// Directory resolves identities to roles and regional assignments.
type Directory interface {
	UserByUsernameAndRole(username, role string) (*models.User, error)
	CoordinatorFor(area, region string) (*models.User, error)
}

// RoomFinder is the read-only room lookup the broadcaster needs.
type RoomFinder interface {
	RoomByID(id int) (*models.ChatRoom, error)
}

// RoomCreator is the pairing store behind the room resolver.
type RoomCreator interface {
	RoomByPair(teknisiUsername, adminUsername string) (*models.ChatRoom, error)
	CreateRoom(teknisiUsername, adminUsername, region string) (*models.ChatRoom, error)
}
