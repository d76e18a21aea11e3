package unitofwork

import "context"

// RepositoryFactory hands out units of work. The gorm factory opens a real
// transaction scope; the memory factory shares one in-process dataset.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
