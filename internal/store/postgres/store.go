package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/citylaw/docket/internal/domain"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx, so every
// repo can run either directly on the pool or inside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// repos implements domain.Repositories over one DBTX.
type repos struct {
	users         *UserRepo
	cases         *CaseRepo
	requests      *RequestRepo
	tasks         *TaskRepo
	dependencies  *DependencyRepo
	templates     *TemplateRepo
	activity      *ActivityRepo
	notifications *NotificationRepo
}

func newRepos(db DBTX) repos {
	return repos{
		users:         NewUserRepo(db),
		cases:         NewCaseRepo(db),
		requests:      NewRequestRepo(db),
		tasks:         NewTaskRepo(db),
		dependencies:  NewDependencyRepo(db),
		templates:     NewTemplateRepo(db),
		activity:      NewActivityRepo(db),
		notifications: NewNotificationRepo(db),
	}
}

func (r repos) Users() domain.UserRepository                 { return r.users }
func (r repos) Cases() domain.CaseRepository                 { return r.cases }
func (r repos) Requests() domain.RequestRepository           { return r.requests }
func (r repos) Tasks() domain.TaskRepository                 { return r.tasks }
func (r repos) Dependencies() domain.DependencyRepository    { return r.dependencies }
func (r repos) Templates() domain.TemplateRepository         { return r.templates }
func (r repos) Activity() domain.ActivityRepository          { return r.activity }
func (r repos) Notifications() domain.NotificationRepository { return r.notifications }

type Store struct {
	repos
	pool *pgxpool.Pool
}

var _ domain.Store = (*Store)(nil)

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{repos: newRepos(pool), pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InTx runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("postgres.InTx: begin: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Warn().Err(rbErr).Msg("postgres: rollback failed")
		}
	}()

	if err := fn(newRepos(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres.InTx: commit: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
