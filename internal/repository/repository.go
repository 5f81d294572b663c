package repository

import "convoy_web/internal/storage"

type Repositories struct {
	User   UserRepository
	Convoy ConvoyRepository
}

func NewRepositories(db *storage.PostgresDB) *Repositories {
	return &Repositories{
		User:   NewUserRepository(db),
		Convoy: NewConvoyRepository(db),
	}
}
