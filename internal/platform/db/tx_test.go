package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeQuerier struct{}

func (fakeQuerier) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, nil
}
func (fakeQuerier) QueryRow(context.Context, string, ...interface{}) pgx.Row { return nil }
func (fakeQuerier) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func TestConnFromContext_Empty(t *testing.T) {
	if q := ConnFromContext(context.Background()); q != nil {
		t.Fatalf("expected nil querier for empty context, got %v", q)
	}
}

func TestConnFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBConnKey, "not a querier")
	if q := ConnFromContext(ctx); q != nil {
		t.Fatalf("expected nil querier for wrong type, got %v", q)
	}
}

func TestWithConn_Roundtrip(t *testing.T) {
	fake := fakeQuerier{}
	ctx := WithConn(context.Background(), fake)

	got := ConnFromContext(ctx)
	if got == nil {
		t.Fatal("expected querier from context, got nil")
	}
	if _, ok := got.(fakeQuerier); !ok {
		t.Fatalf("expected fakeQuerier, got %T", got)
	}
}
