package uow

import (
	"sync"

	"github.com/jackc/pgx/v5"
)

// Transaction отдает репозитории поверх открытой транзакции. Экземпляры репозиториев создаются
// лениво и переиспользуются до конца транзакции.
type Transaction struct {
	mu           sync.Mutex
	factories    map[RepositoryName]RepositoryFactory
	repositories map[RepositoryName]Repository
	tx           pgx.Tx
}

func NewTransaction(tx pgx.Tx, factories map[RepositoryName]RepositoryFactory) *Transaction {
	return &Transaction{
		factories:    factories,
		repositories: make(map[RepositoryName]Repository, len(factories)),
		tx:           tx,
	}
}

// Get возвращает репозиторий или ошибку ErrRepositoryNotRegistered.
func (t *Transaction) Get(name RepositoryName) (Repository, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if repo, ok := t.repositories[name]; ok {
		return repo, nil
	}
	factory, ok := t.factories[name]
	if !ok {
		return nil, ErrRepositoryNotRegistered
	}
	repo := factory(t.tx)
	t.repositories[name] = repo
	return repo, nil
}

// GetAs возвращает зарегистрированный репозиторий с именем name приведенный к типу T
// или ошибки ErrRepositoryNotRegistered, ErrInvalidRepositoryType.
func GetAs[T any](t TX, name RepositoryName) (T, error) {
	var res T
	repo, err := t.Get(name)
	if err != nil {
		return res, err //nolint:wrapcheck
	}
	res, ok := repo.(T)
	if !ok {
		return res, ErrInvalidRepositoryType
	}
	return res, nil
}
