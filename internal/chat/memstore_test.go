package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/fieldops/wms-backend/internal/database"
	"github.com/fieldops/wms-backend/internal/models"
)

// memStore implements Store, RoomFinder, RoomCreator, and Directory against
// maps, mirroring the SQL store's semantics: atomic counter increments,
// created_at assigned at persist time, mark-read predicate on sender.
type memStore struct {
	mu       sync.Mutex
	rooms    map[int]*models.ChatRoom
	messages []*models.ChatMessage
	users    []*models.User

	nextRoomID int
	nextMsgID  int
	clock      time.Time
}

func newMemStore() *memStore {
	return &memStore{
		rooms:      make(map[int]*models.ChatRoom),
		nextRoomID: 1,
		nextMsgID:  1,
		clock:      time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) addUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, &u)
}

func (s *memStore) RoomByID(id int) (*models.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *room
	return &cp, nil
}

func (s *memStore) RoomByPair(teknisi, admin string) (*models.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, room := range s.rooms {
		if room.TeknisiUsername == teknisi && room.AdminRegionalUsername == admin {
			cp := *room
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *memStore) CreateRoom(teknisi, admin, region string) (*models.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	room := &models.ChatRoom{
		ID:                    s.nextRoomID,
		TeknisiUsername:       teknisi,
		AdminRegionalUsername: admin,
		Region:                region,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	s.nextRoomID++
	s.rooms[room.ID] = room
	cp := *room
	return &cp, nil
}

func (s *memStore) AppendMessage(m *models.ChatMessage) (*models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[m.RoomID]
	if !ok {
		return nil, database.ErrNotFound
	}

	m.ID = s.nextMsgID
	s.nextMsgID++
	m.CreatedAt = s.tick()
	cp := *m
	s.messages = append(s.messages, &cp)

	text := m.Message
	room.LastMessage = &text
	at := m.CreatedAt
	room.LastMessageAt = &at
	if m.SenderRole == models.RoleTeknisi {
		room.UnreadCountAdmin++
	} else {
		room.UnreadCountTeknisi++
	}
	room.UpdatedAt = m.CreatedAt
	return m, nil
}

func (s *memStore) MarkRead(roomID int, role, reader string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return database.ErrNotFound
	}
	if role == models.RoleTeknisi {
		room.UnreadCountTeknisi = 0
	} else {
		room.UnreadCountAdmin = 0
	}
	for _, m := range s.messages {
		if m.RoomID == roomID && m.SenderUsername != reader && !m.IsRead {
			m.IsRead = true
		}
	}
	return nil
}

// history returns a room's messages oldest first, matching the query surface.
func (s *memStore) history(roomID int) []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ChatMessage
	for _, m := range s.messages {
		if m.RoomID == roomID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *memStore) UserByUsernameAndRole(username, role string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username && u.Role == role {
			cp := *u
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *memStore) CoordinatorFor(area, region string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Role == models.RoleAdminRegional && u.Area == area {
			cp := *u
			return &cp, nil
		}
	}
	for _, u := range s.users {
		if u.Role == models.RoleAdminRegional && u.Region == region {
			cp := *u
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}
