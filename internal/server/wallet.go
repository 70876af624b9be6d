package server

import (
	"errors"
	"time"

	"quickdraw/internal/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	txKindEntryFee = "entry_fee"
	txKindReward   = "reward"
	txKindVoiceFee = "voice_fee"
)

var errWalletInsufficient = errors.New("insufficient coins")

// debitCoins takes amount from the user's wallet under a row lock and
// appends the ledger entry in the same transaction.
func (s *Server) debitCoins(userID uint, amount int, kind string, roomID *uint) error {
	if amount <= 0 {
		return nil
	}
	return s.store.withDeadlockRetry(func(tx *gorm.DB) error {
		var user db.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
			return err
		}
		if user.Coins < amount {
			return errWalletInsufficient
		}
		if err := tx.Model(&db.User{}).Where("id = ?", userID).
			Update("coins", gorm.Expr("coins - ?", amount)).Error; err != nil {
			return err
		}
		return tx.Create(&db.CoinTransaction{
			UserID:    userID,
			RoomID:    roomID,
			Amount:    -amount,
			Kind:      kind,
			CreatedAt: time.Now().UTC(),
		}).Error
	})
}

func (s *Server) creditCoins(userID uint, amount int, kind string, roomID *uint) error {
	if amount <= 0 {
		return nil
	}
	return s.store.withDeadlockRetry(func(tx *gorm.DB) error {
		if err := tx.Model(&db.User{}).Where("id = ?", userID).
			Update("coins", gorm.Expr("coins + ?", amount)).Error; err != nil {
			return err
		}
		return tx.Create(&db.CoinTransaction{
			UserID:    userID,
			RoomID:    roomID,
			Amount:    amount,
			Kind:      kind,
			CreatedAt: time.Now().UTC(),
		}).Error
	})
}

// chargeVoiceFee is all-or-nothing: every active participant must afford
// the voice cost or the whole change is rejected.
func (s *Server) chargeVoiceFee(roomID uint, participants []db.Participant, cost int) error {
	if cost <= 0 {
		return nil
	}
	return s.store.withDeadlockRetry(func(tx *gorm.DB) error {
		for _, p := range participants {
			var user db.User
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, p.UserID).Error; err != nil {
				return err
			}
			if user.Coins < cost {
				return errWalletInsufficient
			}
		}
		for _, p := range participants {
			if err := tx.Model(&db.User{}).Where("id = ?", p.UserID).
				Update("coins", gorm.Expr("coins - ?", cost)).Error; err != nil {
				return err
			}
			if err := tx.Create(&db.CoinTransaction{
				UserID:    p.UserID,
				RoomID:    &roomID,
				Amount:    -cost,
				Kind:      txKindVoiceFee,
				CreatedAt: time.Now().UTC(),
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
