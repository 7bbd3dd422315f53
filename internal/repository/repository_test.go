package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classroomhub/internal/database"
	"classroomhub/internal/models"
)

func setupMockDB(t *testing.T, dialect database.Dialect) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return database.Wrap(sqlDB, dialect), mock
}

func TestCreateUser_NormalizesEmail(t *testing.T) {
	db, mock := setupMockDB(t, database.NewSQLiteDialect())
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("Alice@Example.com", "alice@example.com", "hash", "Alice", false).
		WillReturnResult(sqlmock.NewResult(7, 1))

	user, err := repo.CreateUser(context.Background(), "Alice@Example.com", "hash", "Alice")

	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "Alice@Example.com", user.Email)
	assert.False(t, user.IsAdmin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_PostgresReturningID(t *testing.T) {
	db, mock := setupMockDB(t, database.NewPostgresDialect())
	repo := NewUserRepository(db)

	mock.ExpectQuery(`INSERT INTO users .* VALUES \(\$1, \$2, \$3, \$4, \$5\) RETURNING id`).
		WithArgs("bob@example.com", "bob@example.com", "hash", "Bob", false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	user, err := repo.CreateUser(context.Background(), "bob@example.com", "hash", "Bob")

	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db, mock := setupMockDB(t, database.NewPostgresDialect())
	repo := NewUserRepository(db)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.CreateUser(context.Background(), "bob@example.com", "hash", "Bob")

	assert.True(t, errors.Is(err, database.ErrUniqueViolation), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db, mock := setupMockDB(t, database.NewSQLiteDialect())
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT .* FROM users WHERE email_normalized = \?`).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "name", "is_admin", "created_at", "updated_at"}))

	user, err := repo.GetUserByEmail(context.Background(), "  Nobody@Example.com ")

	require.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountAuthoredContent(t *testing.T) {
	db, mock := setupMockDB(t, database.NewSQLiteDialect())
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT`).
		WithArgs(int64(4), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"events", "messages"}).AddRow(2, 1))

	events, messages, err := repo.CountAuthoredContent(context.Background(), 4)

	require.NoError(t, err)
	assert.Equal(t, 2, events)
	assert.Equal(t, 1, messages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteClassroom_RestrictedByChildren(t *testing.T) {
	db, mock := setupMockDB(t, database.NewPostgresDialect())
	repo := NewClassroomRepository(db)

	mock.ExpectExec(`DELETE FROM classrooms WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnError(&pq.Error{Code: "23503"})

	_, err := repo.DeleteClassroom(context.Background(), 1)

	assert.True(t, errors.Is(err, database.ErrForeignKeyViolation), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetClassroom_NullName(t *testing.T) {
	db, mock := setupMockDB(t, database.NewSQLiteDialect())
	repo := NewClassroomRepository(db)

	now := time.Now()
	mock.ExpectQuery(`FROM classrooms`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "school_year_start", "name", "created_at", "updated_at"}).
			AddRow(2, 2024, nil, now, now))

	classroom, err := repo.GetClassroom(context.Background(), 2)

	require.NoError(t, err)
	require.NotNil(t, classroom)
	assert.Equal(t, "", classroom.Name)
	assert.Equal(t, "2024-2025", classroom.SchoolYearLabel())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetChild_ParsesTimestampDate(t *testing.T) {
	db, mock := setupMockDB(t, database.NewSQLiteDialect())
	repo := NewChildRepository(db)

	now := time.Now()
	mock.ExpectQuery(`FROM children c WHERE c.id = \?`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "birthdate", "classroom_id", "created_at", "updated_at"}).
			AddRow(5, "Bob", "Smith", "2020-03-04T00:00:00Z", 1, now, now))

	child, err := repo.GetChild(context.Background(), 5)

	require.NoError(t, err)
	require.NotNil(t, child)
	assert.Equal(t, models.Date(2020, time.March, 4), child.Birthdate)
	assert.Equal(t, "Bob Smith", child.FullName())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEventsInRange(t *testing.T) {
	db, mock := setupMockDB(t, database.NewSQLiteDialect())
	repo := NewEventRepository(db)

	now := time.Now()
	columns := []string{"id", "title", "description", "date", "event_type", "created_by",
		"snack_duty_parent_id", "created_at", "creator_name", "snack_name"}
	rows := sqlmock.NewRows(columns).
		AddRow(1, "Fall Picnic", nil, "2024-09-20", "field_trip", 1, nil, now, "Alice", nil).
		AddRow(2, "Snacks", "fruit", "2024-09-27", "snack_duty", 1, 2, now, "Alice", "Carol")

	mock.ExpectQuery(`WHERE e.date >= \? AND e.date <= \?`).
		WithArgs("2024-09-01", "2024-09-30").
		WillReturnRows(rows)

	events, err := repo.ListEventsInRange(context.Background(),
		models.Date(2024, time.September, 1), models.Date(2024, time.September, 30))

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventFieldTrip, events[0].Type)
	assert.Nil(t, events[0].SnackDutyParentID)
	assert.Equal(t, "", events[0].Description)
	require.NotNil(t, events[1].SnackDutyParentID)
	assert.Equal(t, int64(2), *events[1].SnackDutyParentID)
	assert.Equal(t, "Carol", events[1].SnackDutyName)
	assert.Equal(t, models.Date(2024, time.September, 27), events[1].Date)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUpcomingSnackDuty_FiltersType(t *testing.T) {
	db, mock := setupMockDB(t, database.NewSQLiteDialect())
	repo := NewEventRepository(db)

	mock.ExpectQuery(`WHERE e.event_type = \? AND e.date >= \?`).
		WithArgs("snack_duty", "2024-09-15").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	events, err := repo.ListUpcomingSnackDuty(context.Background(), models.Date(2024, time.September, 15))

	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEvent_NullableSnackDuty(t *testing.T) {
	db, mock := setupMockDB(t, database.NewSQLiteDialect())
	repo := NewEventRepository(db)

	mock.ExpectExec(`INSERT INTO events`).
		WithArgs("Fall Picnic", nil, "2024-09-20", "field_trip", int64(1), nil).
		WillReturnResult(sqlmock.NewResult(9, 1))

	event := &models.Event{
		Title:     "Fall Picnic",
		Date:      models.Date(2024, time.September, 20),
		Type:      models.EventFieldTrip,
		CreatedBy: 1,
	}
	require.NoError(t, repo.CreateEvent(context.Background(), event))
	assert.Equal(t, int64(9), event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMessages_Limit(t *testing.T) {
	db, mock := setupMockDB(t, database.NewSQLiteDialect())
	repo := NewMessageRepository(db)

	now := time.Now()
	columns := []string{"id", "subject", "body", "sender_id", "name", "is_broadcast", "created_at"}

	mock.ExpectQuery(`ORDER BY m.created_at DESC, m.id DESC LIMIT \?`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(2, "Hi", "Body", 1, "Alice", true, now))

	messages, err := repo.ListMessages(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "Alice", messages[0].SenderName)

	mock.ExpectQuery(`ORDER BY m.created_at DESC, m.id DESC$`).
		WillReturnRows(sqlmock.NewRows(columns))

	messages, err = repo.ListMessages(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRelationship_AbsentIsNotAnError(t *testing.T) {
	db, mock := setupMockDB(t, database.NewSQLiteDialect())
	repo := NewRelationshipRepository(db)

	mock.ExpectExec(`DELETE FROM child_relationships`).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.DeleteRelationship(context.Background(), 1, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListGuardiansOf(t *testing.T) {
	db, mock := setupMockDB(t, database.NewSQLiteDialect())
	repo := NewRelationshipRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "name", "is_admin", "created_at", "updated_at",
		"relationship_type", "is_primary_contact", "linked_at"}).
		AddRow(1, "alice@example.com", "Alice", false, now, now, "mother", true, now).
		AddRow(3, "carl@example.com", "Carl", false, now, now, "grandfather", false, now)

	mock.ExpectQuery(`ORDER BY cr.created_at ASC, cr.id ASC`).
		WithArgs(int64(2)).
		WillReturnRows(rows)

	guardians, err := repo.ListGuardiansOf(context.Background(), 2)

	require.NoError(t, err)
	require.Len(t, guardians, 2)
	assert.Equal(t, "Alice", guardians[0].User.Name)
	assert.Equal(t, models.RelationshipMother, guardians[0].Kind)
	assert.True(t, guardians[0].IsPrimaryContact)
	assert.Equal(t, models.RelationshipGrandfather, guardians[1].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}
