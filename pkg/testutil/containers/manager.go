//go:build integration

// Package containers starts shared testcontainers instances for
// integration tests. Each container type is started at most once per test
// binary; Ryuk reaps them when the binary exits.
package containers

import (
	"sync"
	"testing"
)

var (
	postgresOnce sync.Once
	postgresInst *PostgresContainer
	postgresErr  error

	redisOnce sync.Once
	redisInst *RedisContainer
	redisErr  error
)

// SharedPostgres returns the per-binary Postgres container, starting it on
// first use.
func SharedPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	postgresOnce.Do(func() {
		postgresInst, postgresErr = StartPostgres()
	})
	if postgresErr != nil {
		t.Fatalf("postgres container: %v", postgresErr)
	}
	return postgresInst
}

// SharedRedis returns the per-binary Redis container, starting it on first use.
func SharedRedis(t *testing.T) *RedisContainer {
	t.Helper()
	redisOnce.Do(func() {
		redisInst, redisErr = StartRedis()
	})
	if redisErr != nil {
		t.Fatalf("redis container: %v", redisErr)
	}
	return redisInst
}
