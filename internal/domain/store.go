package domain

import "context"

// Repositories groups the repository accessors. Implementations bound to a
// transaction return repositories that share it.
type Repositories interface {
	Users() UserRepository
	Cases() CaseRepository
	Requests() RequestRepository
	Tasks() TaskRepository
	Dependencies() DependencyRepository
	Templates() TemplateRepository
	Activity() ActivityRepository
	Notifications() NotificationRepository
}

// Store is the relational store. InTx runs fn inside one transaction and
// commits when fn returns nil; any error rolls every write back.
type Store interface {
	Repositories
	InTx(ctx context.Context, fn func(tx Repositories) error) error
}
