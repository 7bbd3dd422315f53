package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "sqlite unique",
			err:  sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique},
			want: ErrUniqueViolation,
		},
		{
			name: "sqlite primary key",
			err:  sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey},
			want: ErrUniqueViolation,
		},
		{
			name: "sqlite foreign key",
			err:  sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey},
			want: ErrForeignKeyViolation,
		},
		{
			name: "postgres unique",
			err:  &pq.Error{Code: "23505"},
			want: ErrUniqueViolation,
		},
		{
			name: "postgres foreign key",
			err:  &pq.Error{Code: "23503"},
			want: ErrForeignKeyViolation,
		},
		{
			name: "mysql duplicate entry",
			err:  &mysql.MySQLError{Number: 1062},
			want: ErrUniqueViolation,
		},
		{
			name: "mysql row is referenced",
			err:  &mysql.MySQLError{Number: 1451},
			want: ErrForeignKeyViolation,
		},
		{
			name: "wrapped driver error",
			err:  fmt.Errorf("failed to insert: %w", &pq.Error{Code: "23505"}),
			want: ErrUniqueViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyErrorPassesThroughOtherErrors(t *testing.T) {
	if ClassifyError(nil) != nil {
		t.Error("ClassifyError(nil) should be nil")
	}

	plain := errors.New("connection refused")
	if got := ClassifyError(plain); got != plain {
		t.Errorf("ClassifyError() = %v, want unchanged error", got)
	}

	notNull := &pq.Error{Code: "23502"}
	got := ClassifyError(notNull)
	if errors.Is(got, ErrUniqueViolation) || errors.Is(got, ErrForeignKeyViolation) {
		t.Errorf("not-null violation should not be classified, got %v", got)
	}
}
