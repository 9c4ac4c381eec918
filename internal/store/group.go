package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"studytrack/internal/model"
)

// CreateGroup creates a study group and adds the creator as its first member.
func (s *Store) CreateGroup(ctx context.Context, name string, createdBy int64) (model.Group, error) {
	g := model.Group{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Group{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, created_by, created_at) VALUES (?, ?, ?, ?)`,
		g.ID, g.Name, g.CreatedBy, g.CreatedAt,
	)
	if err != nil {
		return model.Group{}, err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)`,
		g.ID, createdBy, time.Now(),
	)
	if err != nil {
		return model.Group{}, err
	}

	g.Members = 1
	return g, tx.Commit()
}

// GetGroup returns a group by ID, or nil if not found.
func (s *Store) GetGroup(ctx context.Context, id string) (*model.Group, error) {
	var g model.Group
	err := s.db.QueryRowContext(ctx,
		`SELECT g.id, g.name, g.created_by, g.created_at, COUNT(m.user_id)
		 FROM groups g LEFT JOIN group_members m ON m.group_id = g.id
		 WHERE g.id = ? GROUP BY g.id`, id,
	).Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt, &g.Members)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGroups returns all groups with member counts.
func (s *Store) ListGroups(ctx context.Context) ([]model.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.created_by, g.created_at, COUNT(m.user_id)
		 FROM groups g LEFT JOIN group_members m ON m.group_id = g.id
		 GROUP BY g.id ORDER BY g.name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt, &g.Members); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// JoinGroup adds a user to a group. Joining twice is a no-op.
func (s *Store) JoinGroup(ctx context.Context, groupID string, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)
		 ON CONFLICT(group_id, user_id) DO NOTHING`,
		groupID, userID, time.Now(),
	)
	return err
}

// LeaveGroup removes a user from a group.
func (s *Store) LeaveGroup(ctx context.Context, groupID string, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID, userID,
	)
	return err
}

// Leaderboard returns active users ordered by points, highest first.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]model.User, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, display_name, password_hash, role, points, active, created_at
		 FROM users WHERE active ORDER BY points DESC, username LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.Role, &u.Points, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
