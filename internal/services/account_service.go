package services

import (
	"context"
	"errors"
	"time"

	"bankledger/internal/core"
	"bankledger/internal/locks"
	"bankledger/internal/log"
)

const initialDepositDescription = "Initial deposit"

// AccountService provisions and retires accounts.
type AccountService struct {
	runner    TxRunner
	locks     *locks.Manager
	lockWait  time.Duration
	publisher EventPublisher
}

// NewAccountService wires the service. publisher may be nil.
func NewAccountService(runner TxRunner, lockManager *locks.Manager, publisher EventPublisher, lockWait time.Duration) *AccountService {
	return &AccountService{
		runner:    runner,
		locks:     lockManager,
		lockWait:  lockWait,
		publisher: publisher,
	}
}

// OpenAccount creates an active account. A positive initial balance is
// booked as a deposit entry so the ledger explains every balance.
func (s *AccountService) OpenAccount(ctx context.Context, initial core.Money) (core.Account, error) {
	if initial.Cents < 0 {
		return core.Account{}, core.ErrInvalidAmount
	}

	var (
		account core.Account
		deposit *core.Transaction
	)
	err := s.runner.InTx(ctx, func(tx LedgerTx) error {
		deposit = nil
		a, err := tx.CreateAccount(ctx)
		if err != nil {
			return err
		}
		if initial.Cents > 0 {
			bal, err := tx.AdjustBalance(ctx, a.ID, initial.Cents)
			if err != nil {
				return err
			}
			a.Balance = bal
			a.Version++
			entry, err := tx.AppendTransaction(ctx, core.Transaction{
				ToAccountID: core.AccountRef(a.ID),
				Amount:      initial,
				Description: initialDepositDescription,
				Type:        core.TypeDeposit,
				Status:      core.StatusCommitted,
			})
			if err != nil {
				return err
			}
			deposit = &entry
		}
		account = a
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}

	logger := log.FromContext(ctx).WithComponent(log.ComponentAccount)
	logger.InfoContext(ctx, "Account opened", log.FieldAccountID, account.ID)

	if deposit != nil && s.publisher != nil {
		if err := s.publisher.PublishTransactionCommitted(ctx, *deposit); err != nil {
			logger.WarnContext(ctx, "Failed to publish initial deposit",
				log.FieldTransactionID, deposit.ID, log.FieldError, err)
		}
	}
	return account, nil
}

// DeactivateAccount retires an account. Its balance stays on the books but
// the engine treats it as missing from then on. The account lock is held so
// no movement is half way through it.
func (s *AccountService) DeactivateAccount(ctx context.Context, id int64) error {
	release, err := s.locks.Acquire(ctx, s.lockWait, id)
	if errors.Is(err, locks.ErrTimeout) {
		return core.ErrLockTimeout
	}
	if err != nil {
		return err
	}
	defer release()

	err = s.runner.InTx(ctx, func(tx LedgerTx) error {
		ok, err := tx.AccountExists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return core.ErrAccountNotFound
		}
		return tx.SetAccountActive(ctx, id, false)
	})
	if err != nil {
		return err
	}

	log.FromContext(ctx).WithComponent(log.ComponentAccount).
		InfoContext(ctx, "Account deactivated", log.FieldAccountID, id)
	return nil
}
