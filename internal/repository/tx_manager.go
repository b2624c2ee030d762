package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/moderation-backend/internal/repository/common"
)

// TxManager открывает транзакции, которые репозитории подхватывают из контекста.
type TxManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx выполняет fn атомарно.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return common.RunInTx(ctx, m.db, fn)
}
