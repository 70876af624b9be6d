package server

import (
	"errors"
	"time"

	"quickdraw/internal/db"

	"github.com/jackc/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errStoreRoomFull = errors.New("room full")
	errStoreBanned   = errors.New("banned from room")
	errStoreClosed   = errors.New("room closed")
)

// roomStore owns all writes to the rooms and room_participants tables.
// TransitionPhase is the sole permitted way to change round_phase.
type roomStore struct {
	db *gorm.DB
}

func newRoomStore(conn *gorm.DB) *roomStore {
	return &roomStore{db: conn}
}

func (st *roomStore) GetRoom(roomID uint) (*db.Room, error) {
	var room db.Room
	if err := st.db.First(&room, roomID).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (st *roomStore) FindRoomByCode(code string) (*db.Room, error) {
	var room db.Room
	if err := st.db.Where("code = ?", code).First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// TransitionPhase applies updates only if the row's current round_phase
// still equals fromPhase. Returns the post-image on success, nil when the
// compare failed and some concurrent caller won the transition.
func (st *roomStore) TransitionPhase(roomID uint, fromPhase *string, updates map[string]any) (*db.Room, error) {
	query := st.db.Model(&db.Room{}).Where("id = ?", roomID)
	if fromPhase == nil {
		query = query.Where("round_phase IS NULL")
	} else {
		query = query.Where("round_phase = ?", *fromPhase)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return st.GetRoom(roomID)
}

// Participants returns all rows for the room sorted by user id, the
// canonical rotation order.
func (st *roomStore) Participants(roomID uint) ([]db.Participant, error) {
	var participants []db.Participant
	err := st.db.Where("room_id = ?", roomID).Order("user_id asc").Find(&participants).Error
	return participants, err
}

func (st *roomStore) ActiveParticipants(roomID uint) ([]db.Participant, error) {
	var participants []db.Participant
	err := st.db.Where("room_id = ? AND is_active = ?", roomID, true).
		Order("user_id asc").Find(&participants).Error
	return participants, err
}

func (st *roomStore) GetParticipant(roomID, userID uint) (*db.Participant, error) {
	var participant db.Participant
	err := st.db.Where("room_id = ? AND user_id = ?", roomID, userID).First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (st *roomStore) UpdateParticipant(participantID uint, updates map[string]any) error {
	return st.db.Model(&db.Participant{}).Where("id = ?", participantID).Updates(updates).Error
}

func (st *roomStore) UpdateRoomParticipants(roomID uint, updates map[string]any) error {
	return st.db.Model(&db.Participant{}).Where("room_id = ?", roomID).Updates(updates).Error
}

func (st *roomStore) RemoveParticipant(participantID uint) error {
	return st.db.Delete(&db.Participant{}, participantID).Error
}

// JoinRoom materializes a participant row, enforcing max_players by
// locking the room row and counting active participants under the lock.
// An existing row is returned as-is for the caller to inspect.
func (st *roomStore) JoinRoom(roomID, userID uint, team *string) (*db.Participant, bool, error) {
	var participant db.Participant
	created := false
	err := st.withDeadlockRetry(func(tx *gorm.DB) error {
		var room db.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&room, roomID).Error; err != nil {
			return err
		}
		if room.Status == statusClosed || room.Status == statusFinished {
			return errStoreClosed
		}
		err := tx.Where("room_id = ? AND user_id = ?", roomID, userID).First(&participant).Error
		if err == nil {
			if participant.BannedAt != nil {
				return errStoreBanned
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		var active int64
		if err := tx.Model(&db.Participant{}).
			Where("room_id = ? AND is_active = ?", roomID, true).Count(&active).Error; err != nil {
			return err
		}
		if int(active) >= room.MaxPlayers {
			return errStoreRoomFull
		}
		now := time.Now().UTC()
		participant = db.Participant{
			RoomID:           roomID,
			UserID:           userID,
			Team:             team,
			PointsUpdatedAt:  now,
			EliminationCount: 3,
			IsActive:         true,
		}
		if err := tx.Create(&participant).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &participant, created, nil
}

// AwardTeam gives the first-correct reward to every active member of the
// team exactly once per round. The whole team is locked and the
// has_guessed_this_round flag of any member inside the same transaction
// is the once-only guard.
func (st *roomStore) AwardTeam(roomID uint, team string, reward int, now time.Time) ([]db.Participant, bool, error) {
	var members []db.Participant
	awarded := false
	err := st.withDeadlockRetry(func(tx *gorm.DB) error {
		members = nil
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("room_id = ? AND team = ? AND is_active = ?", roomID, team, true).
			Order("user_id asc").Find(&members).Error; err != nil {
			return err
		}
		for _, member := range members {
			if member.HasGuessedThisRound {
				return nil
			}
		}
		ids := make([]uint, 0, len(members))
		for _, member := range members {
			ids = append(ids, member.ID)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Model(&db.Participant{}).Where("id IN ?", ids).Updates(map[string]any{
			"score":                  gorm.Expr("score + ?", reward),
			"has_guessed_this_round": true,
			"points_updated_at":      now,
		}).Error; err != nil {
			return err
		}
		for i := range members {
			members[i].Score += reward
			members[i].HasGuessedThisRound = true
			members[i].PointsUpdatedAt = now
		}
		awarded = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return members, awarded, nil
}

// AwardSolo adds reward to a single guesser and marks the round guessed,
// once; the has_guessed_this_round recheck under the row lock loses
// gracefully against a concurrent duplicate.
func (st *roomStore) AwardSolo(participantID uint, reward int, now time.Time) (bool, error) {
	awarded := false
	err := st.withDeadlockRetry(func(tx *gorm.DB) error {
		var participant db.Participant
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&participant, participantID).Error; err != nil {
			return err
		}
		if participant.HasGuessedThisRound {
			return nil
		}
		if err := tx.Model(&db.Participant{}).Where("id = ?", participantID).Updates(map[string]any{
			"score":                  gorm.Expr("score + ?", reward),
			"has_guessed_this_round": true,
			"points_updated_at":      now,
		}).Error; err != nil {
			return err
		}
		awarded = true
		return nil
	})
	return awarded, err
}

func (st *roomStore) UpdateRoom(roomID uint, updates map[string]any) (*db.Room, error) {
	if err := st.db.Model(&db.Room{}).Where("id = ?", roomID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return st.GetRoom(roomID)
}

func (st *roomStore) DeleteRoom(roomID uint) error {
	return st.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&db.Participant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.Room{}, roomID).Error
	})
}

// withDeadlockRetry retries a transaction a bounded number of times on
// serialization failures and deadlocks.
func (st *roomStore) withDeadlockRetry(fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = st.db.Transaction(fn)
		if err == nil || !isRetryableTxError(err) {
			return err
		}
		time.Sleep(time.Duration(50*(attempt+1)) * time.Millisecond)
	}
	return err
}

func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40P01" || pgErr.Code == "40001"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
