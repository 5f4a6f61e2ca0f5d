package ports

import (
	"context"

	"github.com/bnema/limitwatch/internal/domain"
)

type AccountRepository interface {
	Get(ctx context.Context, key domain.AccountKey) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Save(ctx context.Context, account domain.Account) error
	Delete(ctx context.Context, key domain.AccountKey) error
}
