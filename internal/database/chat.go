package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fieldops/wms-backend/internal/models"
)

const roomColumns = `SELECT id, teknisi_username, admin_regional_username, region,
	last_message, last_message_at, unread_count_teknisi, unread_count_admin,
	created_at, updated_at FROM chat_rooms`

// --- Rooms ---

func (s *Store) RoomByID(id int) (*models.ChatRoom, error) {
	return scanRoom(s.db.QueryRow(roomColumns+` WHERE id = $1`, id))
}

func (s *Store) RoomByPair(teknisiUsername, adminUsername string) (*models.ChatRoom, error) {
	return scanRoom(s.db.QueryRow(
		roomColumns+` WHERE teknisi_username = $1 AND admin_regional_username = $2`,
		teknisiUsername, adminUsername))
}

func (s *Store) CreateRoom(teknisiUsername, adminUsername, region string) (*models.ChatRoom, error) {
	var r models.ChatRoom
	err := s.db.QueryRow(
		`INSERT INTO chat_rooms (teknisi_username, admin_regional_username, region)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (teknisi_username, admin_regional_username) DO UPDATE SET region = chat_rooms.region
		 RETURNING id, teknisi_username, admin_regional_username, region,
		           last_message, last_message_at, unread_count_teknisi, unread_count_admin,
		           created_at, updated_at`,
		teknisiUsername, adminUsername, region,
	).Scan(&r.ID, &r.TeknisiUsername, &r.AdminRegionalUsername, &r.Region,
		&r.LastMessage, &r.LastMessageAt, &r.UnreadCountTeknisi, &r.UnreadCountAdmin,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return &r, nil
}

// RoomsForUser lists rooms visible to an identity: teknisi and admin regional
// see their own pairings, admin sees everything.
func (s *Store) RoomsForUser(username, role string) ([]models.ChatRoom, error) {
	var (
		rows *sql.Rows
		err  error
	)
	switch role {
	case models.RoleTeknisi:
		rows, err = s.db.Query(roomColumns+` WHERE teknisi_username = $1 ORDER BY last_message_at DESC NULLS LAST, id`, username)
	case models.RoleAdminRegional:
		rows, err = s.db.Query(roomColumns+` WHERE admin_regional_username = $1 ORDER BY last_message_at DESC NULLS LAST, id`, username)
	default:
		rows, err = s.db.Query(roomColumns + ` ORDER BY last_message_at DESC NULLS LAST, id`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	rooms := []models.ChatRoom{}
	for rows.Next() {
		var r models.ChatRoom
		if err := rows.Scan(&r.ID, &r.TeknisiUsername, &r.AdminRegionalUsername, &r.Region,
			&r.LastMessage, &r.LastMessageAt, &r.UnreadCountTeknisi, &r.UnreadCountAdmin,
			&r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func scanRoom(row *sql.Row) (*models.ChatRoom, error) {
	var r models.ChatRoom
	err := row.Scan(&r.ID, &r.TeknisiUsername, &r.AdminRegionalUsername, &r.Region,
		&r.LastMessage, &r.LastMessageAt, &r.UnreadCountTeknisi, &r.UnreadCountAdmin,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return &r, nil
}

// --- Messages ---

// AppendMessage persists a message and updates the room's last-message fields
// in one transaction. The unread counter of the non-sending role is
// incremented in SQL so concurrent sends cannot lose an increment.
func (s *Store) AppendMessage(m *models.ChatMessage) (*models.ChatMessage, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	counter := "unread_count_admin"
	if m.SenderRole == models.RoleAdminRegional {
		counter = "unread_count_teknisi"
	}
	res, err := tx.Exec(
		`UPDATE chat_rooms SET last_message = $1, last_message_at = NOW(),
		        `+counter+` = `+counter+` + 1, updated_at = NOW()
		 WHERE id = $2`,
		m.Message, m.RoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to update room: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	err = tx.QueryRow(
		`INSERT INTO chat_messages (room_id, sender_username, sender_role, message, message_type, attachment_url)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, is_read, created_at`,
		m.RoomID, m.SenderUsername, m.SenderRole, m.Message, m.MessageType, m.AttachmentURL,
	).Scan(&m.ID, &m.IsRead, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}
	return m, nil
}

// MarkRead zeroes the reader role's unread counter and flips is_read on every
// unread message in the room not sent by the reader.
func (s *Store) MarkRead(roomID int, role, readerUsername string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	counter := "unread_count_admin"
	if role == models.RoleTeknisi {
		counter = "unread_count_teknisi"
	}
	res, err := tx.Exec(
		`UPDATE chat_rooms SET `+counter+` = 0, updated_at = NOW() WHERE id = $1`, roomID)
	if err != nil {
		return fmt.Errorf("failed to reset unread count: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(
		`UPDATE chat_messages SET is_read = TRUE
		 WHERE room_id = $1 AND sender_username != $2 AND is_read = FALSE`,
		roomID, readerUsername)
	if err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return tx.Commit()
}

// Messages returns one page of a room's history, oldest first. Skip counts
// from the newest message so clients can page backwards through history.
func (s *Store) Messages(roomID, skip, limit int) ([]models.ChatMessage, error) {
	rows, err := s.db.Query(
		`SELECT id, room_id, sender_username, sender_role, message, message_type,
		        attachment_url, is_read, created_at
		 FROM chat_messages WHERE room_id = $1
		 ORDER BY created_at DESC, id DESC OFFSET $2 LIMIT $3`,
		roomID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	msgs := []models.ChatMessage{}
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderUsername, &m.SenderRole,
			&m.Message, &m.MessageType, &m.AttachmentURL, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Query runs newest-first for the offset; present oldest-first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
