package db

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestMigrateAppliesInOrder(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	fsys := fstest.MapFS{
		"0002_seed.sql": {Data: []byte("INSERT INTO bet_type_rules VALUES (1)")},
		"0001_init.sql": {Data: []byte("CREATE TABLE bets (id UUID)")},
		"README.md":     {Data: []byte("ignored")},
	}
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE bets")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bet_type_rules")).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := Migrate(context.Background(), conn, fsys); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestMigrateStopsOnFailure(t *testing.T) {
	conn, mock, _ := sqlmock.New()
	defer conn.Close()

	fsys := fstest.MapFS{
		"0001_init.sql": {Data: []byte("CREATE TABLE bets (id UUID)")},
		"0002_seed.sql": {Data: []byte("INSERT INTO bet_type_rules VALUES (1)")},
	}
	boom := errors.New("syntax error")
	mock.ExpectExec("CREATE TABLE").WillReturnError(boom)

	if err := Migrate(context.Background(), conn, fsys); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
