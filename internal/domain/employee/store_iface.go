package employee

import "context"

type StoreAPI interface {
	Create(ctx context.Context, emp Employee) (Employee, error)
	Update(ctx context.Context, emp Employee) (Employee, error)
	UpsertByMatricule(ctx context.Context, emp Employee) (Employee, bool, error)
	Get(ctx context.Context, id string) (Employee, error)
	Count(ctx context.Context, filter Filter) (int, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]Employee, error)
	ListActive(ctx context.Context) ([]Employee, error)
	Delete(ctx context.Context, id string) error
}
