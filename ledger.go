package main

import (
	"github.com/jmoiron/sqlx"
)

// Balance movements. Entry fees flow account -> escrow on join and
// escrow -> account on claim; these are the only two paths that touch money.
// All movements happen inside the caller's transaction so a rejected
// operation never leaves a partial transfer behind.

func debitAccount(tx *sqlx.Tx, address string, amount int64) error {
	if amount == 0 {
		return nil
	}
	result, err := tx.Exec(`
		UPDATE account SET balance = balance - ?
		WHERE address = ? AND balance >= ?`, amount, address, amount)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

func creditAccount(tx *sqlx.Tx, address string, amount int64) error {
	if amount == 0 {
		return nil
	}
	_, err := tx.Exec(`UPDATE account SET balance = balance + ? WHERE address = ?`, amount, address)
	return err
}

func creditEscrow(tx *sqlx.Tx, gameID string, amount int64) error {
	if amount == 0 {
		return nil
	}
	_, err := tx.Exec(`UPDATE game SET escrow = escrow + ? WHERE game_id = ?`, amount, gameID)
	return err
}

// debitEscrow refuses to overdraw: a payout can never exceed what the game
// actually holds.
func debitEscrow(tx *sqlx.Tx, gameID string, amount int64) error {
	if amount == 0 {
		return nil
	}
	result, err := tx.Exec(`
		UPDATE game SET escrow = escrow - ?
		WHERE game_id = ? AND escrow >= ?`, amount, gameID, amount)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInsufficientFunds
	}
	return nil
}
