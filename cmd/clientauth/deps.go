package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"clientauth/internal/audit"
	"clientauth/internal/auth/codegen"
	"clientauth/internal/auth/hasher"
	"clientauth/internal/auth/service"
	"clientauth/internal/auth/store/account"
	jwttoken "clientauth/internal/jwt_token"
	"clientauth/internal/platform/config"
	"clientauth/internal/platform/metrics"
	"clientauth/internal/platform/postgres"
	"clientauth/internal/platform/redis"
	"clientauth/internal/platform/sqlite"
	httptransport "clientauth/internal/transport/http"
	authmw "clientauth/pkg/platform/middleware/auth"
)

// deps holds everything serve runs. closers release resources in reverse
// order of acquisition.
type deps struct {
	service    *service.Service
	tokens     *jwttoken.Service
	identities authmw.IdentityLoader
	publisher  *audit.Publisher
	worker     *audit.Worker
	metrics    *metrics.Metrics
	checks     map[string]httptransport.Pinger
	closers    []func() error
}

func (d *deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	return errors.Join(errs...)
}

type storage struct {
	accounts service.AccountStore
	tx       service.Transactor
	ping     httptransport.Pinger
}

// openStorage selects the account store named by STORE_DRIVER.
func openStorage(ctx context.Context, cfg config.DatabaseConfig, d *deps, logger *slog.Logger) (storage, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.URL, cfg.ConnectRetries)
		if err != nil {
			return storage{}, err
		}
		d.closers = append(d.closers, func() error { pool.Close(); return nil })
		store := account.NewPostgres(pool)
		logger.InfoContext(ctx, "using postgres account store")
		return storage{accounts: store, tx: account.NewPgxTransactor(pool), ping: httptransport.PingFunc(store.Ping)}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return storage{}, err
		}
		d.closers = append(d.closers, db.Close)
		store, err := account.NewSQLite(ctx, db)
		if err != nil {
			return storage{}, err
		}
		logger.InfoContext(ctx, "using sqlite account store", "path", cfg.SQLitePath)
		return storage{accounts: store, tx: account.NewSQLTransactor(db), ping: httptransport.PingFunc(store.Ping)}, nil

	case config.DriverMemory:
		logger.WarnContext(ctx, "using in-memory account store; accounts are lost on restart")
		store := account.NewInMemory()
		return storage{accounts: store, tx: account.NewInMemoryTransactor(), ping: httptransport.PingFunc(store.Ping)}, nil

	default:
		return storage{}, oops.Code("CONFIG_INVALID").Errorf("unknown store driver %q", cfg.Driver)
	}
}

// buildDeps wires the service graph from cfg. On error, everything acquired
// so far has already been released.
func buildDeps(ctx context.Context, cfg config.Server, m *metrics.Metrics, logger *slog.Logger) (_ *deps, err error) {
	d := &deps{metrics: m, checks: map[string]httptransport.Pinger{}}
	defer func() {
		if err != nil {
			_ = d.Close()
		}
	}()

	st, err := openStorage(ctx, cfg.Database, d, logger)
	if err != nil {
		return nil, oops.Code("STORAGE_INIT_FAILED").With("driver", cfg.Database.Driver).Wrap(err)
	}
	d.checks["database"] = st.ping

	d.tokens, err = jwttoken.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	if err != nil {
		return nil, oops.Code("TOKEN_SERVICE_INIT_FAILED").Wrap(err)
	}

	d.publisher = audit.NewPublisher(cfg.Audit.BufferSize)
	d.worker = audit.NewWorker(audit.NewRingBuffer(cfg.Audit.BufferSize), d.publisher.Inbox(), logger)

	d.service, err = service.New(
		st.accounts,
		st.tx,
		d.tokens,
		hasher.New(cfg.Auth.BcryptCost),
		codegen.New(),
		service.WithLogger(logger),
		service.WithMetrics(m),
		service.WithAuditPublisher(d.publisher),
		service.WithTxTimeout(cfg.Auth.TxTimeout),
	)
	if err != nil {
		return nil, oops.Code("SERVICE_INIT_FAILED").Wrap(err)
	}
	d.identities = d.service

	rdb, err := redis.New(ctx, cfg.Redis, cfg.Database.ConnectRetries)
	if err != nil {
		return nil, oops.Code("REDIS_INIT_FAILED").Wrap(err)
	}
	if rdb != nil {
		d.closers = append(d.closers, rdb.Close)
		d.checks["redis"] = httptransport.PingFunc(rdb.Health)
		d.identities = account.NewCachedIdentities(rdb.Client, d.service, cfg.Redis.IdentityTTL, logger)
		logger.InfoContext(ctx, "identity cache enabled", "ttl", cfg.Redis.IdentityTTL)
	}

	return d, nil
}
