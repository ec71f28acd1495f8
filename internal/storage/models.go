package storage

import (
	"database/sql"
)

type Account struct {
	ID        int64
	Balance   int64
	Version   int64
	Active    int64
	CreatedAt int64
}

type Transaction struct {
	ID            int64
	FromAccountID sql.NullInt64
	ToAccountID   sql.NullInt64
	Amount        int64
	Description   string
	Type          string
	Status        string
	CreatedAt     int64
	BudgetRef     sql.NullInt64
}

type Budget struct {
	ID              int64
	OwnerAccountID  int64
	Category        string
	Label           string
	AllocatedAmount int64
	SpentAmount     int64
	CreatedAt       int64
}

type IdempotencyKey struct {
	Key           string
	RequestHash   string
	TransactionID int64
	CreatedAt     int64
}
