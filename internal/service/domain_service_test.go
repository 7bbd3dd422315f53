package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classroomhub/internal/authz"
	"classroomhub/internal/models"
	"classroomhub/internal/validation"
)

func int64Ptr(v int64) *int64 { return &v }

// TestClassroomScenario walks through a classroom's first week: a parent
// signs up, a child is enrolled and linked, and events are created and
// protected from other parents.
func TestClassroomScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice, aliceActor := env.register(t, "alice@example.com", "Alice")
	_, carolActor := env.register(t, "carol@example.com", "Carol")

	classroom, err := env.registry.CreateClassroom(ctx, authz.System, ClassroomInput{SchoolYearStart: 2024})
	require.NoError(t, err)
	assert.Equal(t, "2024-2025", classroom.SchoolYearLabel())

	bob, err := env.registry.EnrollChild(ctx, authz.System, ChildInput{
		FirstName:   "Bob",
		LastName:    "Smith",
		Birthdate:   models.Date(2019, time.May, 2),
		ClassroomID: classroom.ID,
	})
	require.NoError(t, err)

	rel, err := env.guardians.LinkGuardian(ctx, authz.System, alice.ID, bob.ID, models.RelationshipMother, true)
	require.NoError(t, err)
	assert.True(t, rel.IsPrimaryContact)

	event, err := env.calendar.CreateEvent(ctx, aliceActor, EventInput{
		Title: "Fall Picnic",
		Date:  models.Date(2024, time.September, 20),
		Type:  models.EventFieldTrip,
	})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, event.CreatedBy)
	assert.Equal(t, "Alice", event.CreatorName)

	events, err := env.calendar.ListEventsInRange(ctx, models.Date(2024, time.September, 1), models.Date(2024, time.September, 30))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.ID, events[0].ID)
	assert.Equal(t, models.Date(2024, time.September, 20), events[0].Date)

	err = env.calendar.DeleteEvent(ctx, carolActor, event.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	// Still there after the refused delete
	_, err = env.calendar.GetEvent(ctx, event.ID)
	require.NoError(t, err)

	require.NoError(t, env.calendar.DeleteEvent(ctx, aliceActor, event.ID))
	_, err = env.calendar.GetEvent(ctx, event.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, aliceActor := env.register(t, "alice@example.com", "Alice")

	_, err := env.registry.CreateClassroom(ctx, aliceActor, ClassroomInput{SchoolYearStart: 2024})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.registry.EnrollChild(ctx, aliceActor, ChildInput{FirstName: "Bob", LastName: "Smith", Birthdate: models.Date(2019, 1, 1), ClassroomID: 1})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.guardians.LinkGuardian(ctx, aliceActor, 1, 1, models.RelationshipMother, false)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateClassroomValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.registry.CreateClassroom(context.Background(), authz.System, ClassroomInput{SchoolYearStart: 24})
	assert.True(t, validation.IsValidationError(err), "got %v", err)
}

func TestEnrollChildMissingClassroom(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.registry.EnrollChild(context.Background(), authz.System, ChildInput{
		FirstName:   "Bob",
		LastName:    "Smith",
		Birthdate:   models.Date(2019, time.May, 2),
		ClassroomID: 42,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteClassroom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	full, err := env.registry.CreateClassroom(ctx, authz.System, ClassroomInput{SchoolYearStart: 2024, Name: "Room A"})
	require.NoError(t, err)
	empty, err := env.registry.CreateClassroom(ctx, authz.System, ClassroomInput{SchoolYearStart: 2024, Name: "Room B"})
	require.NoError(t, err)

	child, err := env.registry.EnrollChild(ctx, authz.System, ChildInput{
		FirstName: "Bob", LastName: "Smith", Birthdate: models.Date(2019, 5, 2), ClassroomID: full.ID,
	})
	require.NoError(t, err)

	err = env.registry.DeleteClassroom(ctx, authz.System, full.ID)
	assert.ErrorIs(t, err, ErrHasChildren)
	_, err = env.registry.GetChild(ctx, child.ID)
	assert.NoError(t, err, "children are never cascaded")

	require.NoError(t, env.registry.DeleteClassroom(ctx, authz.System, empty.ID))
	_, err = env.registry.GetClassroom(ctx, empty.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = env.registry.DeleteClassroom(ctx, authz.System, empty.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Once the child moves out the classroom can go
	require.NoError(t, env.registry.TransferChild(ctx, authz.System, child.ID, mustClassroom(t, env, 2025).ID))
	require.NoError(t, env.registry.DeleteClassroom(ctx, authz.System, full.ID))
}

func mustClassroom(t *testing.T, env *testEnv, year int) *models.Classroom {
	t.Helper()
	c, err := env.registry.CreateClassroom(context.Background(), authz.System, ClassroomInput{SchoolYearStart: year})
	require.NoError(t, err)
	return c
}

func mustChild(t *testing.T, env *testEnv, first string, classroomID int64) *models.Child {
	t.Helper()
	c, err := env.registry.EnrollChild(context.Background(), authz.System, ChildInput{
		FirstName: first, LastName: "Smith", Birthdate: models.Date(2019, 5, 2), ClassroomID: classroomID,
	})
	require.NoError(t, err)
	return c
}

func TestLinkGuardian(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice, _ := env.register(t, "alice@example.com", "Alice")
	dave, _ := env.register(t, "dave@example.com", "Dave")
	classroom := mustClassroom(t, env, 2024)
	bob := mustChild(t, env, "Bob", classroom.ID)
	eve := mustChild(t, env, "Eve", classroom.ID)

	_, err := env.guardians.LinkGuardian(ctx, authz.System, alice.ID, bob.ID, models.RelationshipMother, true)
	require.NoError(t, err)

	t.Run("duplicate edge", func(t *testing.T) {
		_, err := env.guardians.LinkGuardian(ctx, authz.System, alice.ID, bob.ID, models.RelationshipGuardian, false)
		assert.ErrorIs(t, err, ErrDuplicateEdge)
	})

	t.Run("missing user or child", func(t *testing.T) {
		_, err := env.guardians.LinkGuardian(ctx, authz.System, 9999, bob.ID, models.RelationshipFather, false)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = env.guardians.LinkGuardian(ctx, authz.System, alice.ID, 9999, models.RelationshipFather, false)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := env.guardians.LinkGuardian(ctx, authz.System, dave.ID, bob.ID, models.RelationshipKind("uncle"), false)
		assert.True(t, validation.IsValidationError(err))
	})

	t.Run("empty kind defaults to guardian", func(t *testing.T) {
		rel, err := env.guardians.LinkGuardian(ctx, authz.System, alice.ID, eve.ID, "", false)
		require.NoError(t, err)
		assert.Equal(t, models.RelationshipGuardian, rel.Kind)
	})

	_, err = env.guardians.LinkGuardian(ctx, authz.System, dave.ID, bob.ID, models.RelationshipFather, false)
	require.NoError(t, err)

	guardians, err := env.guardians.ListGuardiansOf(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, guardians, 2)
	assert.Equal(t, alice.ID, guardians[0].User.ID, "ordered by link time")
	assert.Equal(t, models.RelationshipMother, guardians[0].Kind)
	assert.Equal(t, dave.ID, guardians[1].User.ID)

	children, err := env.guardians.ListChildrenOf(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "Bob", children[0].FirstName)
	assert.Equal(t, "Eve", children[1].FirstName)

	_, err = env.guardians.ListGuardiansOf(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListGuardiansOfKeepsLinkOrderWithinSameTimestamp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice, _ := env.register(t, "alice@example.com", "Alice")
	dave, _ := env.register(t, "dave@example.com", "Dave")
	require.Less(t, alice.ID, dave.ID)
	bob := mustChild(t, env, "Bob", mustClassroom(t, env, 2024).ID)

	// Higher user id linked first
	_, err := env.guardians.LinkGuardian(ctx, authz.System, dave.ID, bob.ID, models.RelationshipFather, false)
	require.NoError(t, err)
	_, err = env.guardians.LinkGuardian(ctx, authz.System, alice.ID, bob.ID, models.RelationshipMother, true)
	require.NoError(t, err)

	_, err = env.db.ExecContext(ctx, "UPDATE child_relationships SET created_at = ? WHERE child_id = ?", "2024-09-01 08:00:00", bob.ID)
	require.NoError(t, err)

	guardians, err := env.guardians.ListGuardiansOf(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, guardians, 2)
	assert.Equal(t, dave.ID, guardians[0].User.ID)
	assert.Equal(t, alice.ID, guardians[1].User.ID)
}

func TestUpdateAndUnlinkGuardian(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice, _ := env.register(t, "alice@example.com", "Alice")
	bob := mustChild(t, env, "Bob", mustClassroom(t, env, 2024).ID)

	_, err := env.guardians.LinkGuardian(ctx, authz.System, alice.ID, bob.ID, models.RelationshipGuardian, false)
	require.NoError(t, err)

	require.NoError(t, env.guardians.UpdateGuardian(ctx, authz.System, alice.ID, bob.ID, models.RelationshipGrandmother, true))
	guardians, err := env.guardians.ListGuardiansOf(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, guardians, 1)
	assert.Equal(t, models.RelationshipGrandmother, guardians[0].Kind)
	assert.True(t, guardians[0].IsPrimaryContact)

	require.NoError(t, env.guardians.UnlinkGuardian(ctx, authz.System, alice.ID, bob.ID))
	// Unlinking again is not an error
	require.NoError(t, env.guardians.UnlinkGuardian(ctx, authz.System, alice.ID, bob.ID))

	err = env.guardians.UpdateGuardian(ctx, authz.System, alice.ID, bob.ID, models.RelationshipMother, false)
	assert.ErrorIs(t, err, ErrNotFound)

	guardians, err = env.guardians.ListGuardiansOf(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, guardians)
}

func TestDeleteChildCascadesLinks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice, _ := env.register(t, "alice@example.com", "Alice")
	bob := mustChild(t, env, "Bob", mustClassroom(t, env, 2024).ID)
	_, err := env.guardians.LinkGuardian(ctx, authz.System, alice.ID, bob.ID, models.RelationshipMother, true)
	require.NoError(t, err)

	require.NoError(t, env.registry.DeleteChild(ctx, authz.System, bob.ID))

	children, err := env.guardians.ListChildrenOf(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, children)
}

// Users who created events or messages cannot be deleted; everyone else
// can, taking their guardian links with them.
func TestDeleteUserPolicy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice, aliceActor := env.register(t, "alice@example.com", "Alice")
	dave, _ := env.register(t, "dave@example.com", "Dave")
	bob := mustChild(t, env, "Bob", mustClassroom(t, env, 2024).ID)

	_, err := env.guardians.LinkGuardian(ctx, authz.System, dave.ID, bob.ID, models.RelationshipFather, false)
	require.NoError(t, err)

	event, err := env.calendar.CreateEvent(ctx, aliceActor, EventInput{
		Title:             "Snacks",
		Date:              models.Date(2024, time.October, 3),
		Type:              models.EventSnackDuty,
		SnackDutyParentID: int64Ptr(dave.ID),
	})
	require.NoError(t, err)

	err = env.auth.DeleteUser(ctx, aliceActor, dave.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	err = env.auth.DeleteUser(ctx, authz.System, alice.ID)
	assert.ErrorIs(t, err, ErrHasAuthoredContent)
	_, err = env.calendar.GetEvent(ctx, event.ID)
	assert.NoError(t, err, "authored events survive the refused delete")

	require.NoError(t, env.auth.DeleteUser(ctx, authz.System, dave.ID))

	guardians, err := env.guardians.ListGuardiansOf(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, guardians, "guardian links cascade with the user")

	got, err := env.calendar.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SnackDutyParentID, "snack duty assignment is cleared")

	err = env.auth.DeleteUser(ctx, authz.System, dave.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, aliceActor := env.register(t, "alice@example.com", "Alice")
	carol, _ := env.register(t, "carol@example.com", "Carol")

	t.Run("missing snack duty parent", func(t *testing.T) {
		_, err := env.calendar.CreateEvent(ctx, aliceActor, EventInput{
			Title: "Snacks", Date: models.Date(2024, 9, 1), Type: models.EventSnackDuty, SnackDutyParentID: int64Ptr(9999),
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("zero snack duty parent means none", func(t *testing.T) {
		event, err := env.calendar.CreateEvent(ctx, aliceActor, EventInput{
			Title: "Snacks", Date: models.Date(2024, 9, 1), Type: models.EventSnackDuty, SnackDutyParentID: int64Ptr(0),
		})
		require.NoError(t, err)
		assert.Nil(t, event.SnackDutyParentID)
	})

	t.Run("snack duty parent name", func(t *testing.T) {
		event, err := env.calendar.CreateEvent(ctx, aliceActor, EventInput{
			Title: "Snacks", Date: models.Date(2024, 9, 2), Type: models.EventSnackDuty, SnackDutyParentID: int64Ptr(carol.ID),
		})
		require.NoError(t, err)
		assert.Equal(t, "Carol", event.SnackDutyName)
	})

	t.Run("default type", func(t *testing.T) {
		event, err := env.calendar.CreateEvent(ctx, aliceActor, EventInput{Title: "Open house", Date: models.Date(2024, 9, 3)})
		require.NoError(t, err)
		assert.Equal(t, models.EventGeneral, event.Type)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := env.calendar.CreateEvent(ctx, aliceActor, EventInput{Title: "  ", Date: models.Date(2024, 9, 3)})
		assert.True(t, validation.IsValidationError(err))
		_, err = env.calendar.CreateEvent(ctx, aliceActor, EventInput{Title: "Party", Date: models.Date(2024, 9, 3), Type: "concert"})
		assert.True(t, validation.IsValidationError(err))
		_, err = env.calendar.CreateEvent(ctx, aliceActor, EventInput{Title: "Party"})
		assert.True(t, validation.IsValidationError(err))
	})
}

func TestListEventsInRangeBoundaries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, actor := env.register(t, "alice@example.com", "Alice")

	dates := []time.Time{
		models.Date(2024, time.August, 31),
		models.Date(2024, time.September, 1),
		models.Date(2024, time.September, 30),
		models.Date(2024, time.October, 1),
	}
	// Created out of order to check the ordering
	for i := len(dates) - 1; i >= 0; i-- {
		_, err := env.calendar.CreateEvent(ctx, actor, EventInput{Title: "Event", Date: dates[i]})
		require.NoError(t, err)
	}

	events, err := env.calendar.ListEventsInRange(ctx, models.Date(2024, time.September, 1), models.Date(2024, time.September, 30))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, dates[1], events[0].Date)
	assert.Equal(t, dates[2], events[1].Date)

	_, err = env.calendar.ListEventsInRange(ctx, dates[2], dates[1])
	assert.True(t, validation.IsValidationError(err))
}

func TestMonthViewNormalizesMonth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, actor := env.register(t, "alice@example.com", "Alice")

	for _, d := range []time.Time{models.Date(2023, time.December, 31), models.Date(2025, time.January, 1)} {
		_, err := env.calendar.CreateEvent(ctx, actor, EventInput{Title: "Party", Date: d, Type: models.EventHoliday})
		require.NoError(t, err)
	}

	view, err := env.calendar.MonthView(ctx, 2024, 0)
	require.NoError(t, err)
	assert.Equal(t, 2023, view.Year)
	assert.Equal(t, time.December, view.Month)
	require.Len(t, view.Events, 1)
	assert.Len(t, view.EventsByDay[31], 1)
	assert.Equal(t, 2024, view.NextYear)
	assert.Equal(t, time.January, view.NextMonth)

	view, err = env.calendar.MonthView(ctx, 2024, 13)
	require.NoError(t, err)
	assert.Equal(t, 2025, view.Year)
	assert.Equal(t, time.January, view.Month)
	assert.Equal(t, "January", view.MonthName)
	require.Len(t, view.Events, 1)
	assert.Equal(t, 2024, view.PrevYear)
	assert.Equal(t, time.December, view.PrevMonth)
}

func TestListUpcomingSnackDuty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, actor := env.register(t, "alice@example.com", "Alice")

	inputs := []EventInput{
		{Title: "Past snacks", Date: models.Date(2024, 9, 1), Type: models.EventSnackDuty},
		{Title: "Snacks", Date: models.Date(2024, 9, 20), Type: models.EventSnackDuty, SnackDutyParentID: int64Ptr(alice.ID)},
		{Title: "Picnic", Date: models.Date(2024, 9, 21), Type: models.EventFieldTrip},
		{Title: "Today snacks", Date: models.Date(2024, 9, 15), Type: models.EventSnackDuty},
	}
	for _, in := range inputs {
		_, err := env.calendar.CreateEvent(ctx, actor, in)
		require.NoError(t, err)
	}

	events, err := env.calendar.ListUpcomingSnackDuty(ctx, time.Date(2024, 9, 15, 18, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Today snacks", events[0].Title)
	assert.Equal(t, "Snacks", events[1].Title)
	assert.Equal(t, "Alice", events[1].SnackDutyName)
}

func TestMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, aliceActor := env.register(t, "alice@example.com", "Alice")
	carol, carolActor := env.register(t, "carol@example.com", "Carol")

	first, err := env.messages.SendMessage(ctx, aliceActor, MessageInput{Subject: "Hello", Body: "First week!"})
	require.NoError(t, err)
	assert.True(t, first.IsBroadcast)
	assert.Equal(t, "Alice", first.SenderName)

	second, err := env.messages.SendMessage(ctx, carolActor, MessageInput{Subject: "Lost hat", Body: "Blue, size S"})
	require.NoError(t, err)

	messages, err := env.messages.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, second.ID, messages[0].ID, "newest first")
	assert.Equal(t, first.ID, messages[1].ID)

	recent, err := env.messages.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, second.ID, recent[0].ID)

	err = env.messages.DeleteMessage(ctx, carolActor, first.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	admin := authz.Actor{UserID: carol.ID, IsAdmin: true}
	require.NoError(t, env.messages.DeleteMessage(ctx, admin, first.ID))
	_, err = env.messages.GetMessage(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = env.messages.DeleteMessage(ctx, admin, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.messages.SendMessage(ctx, aliceActor, MessageInput{Subject: "", Body: "no subject"})
	assert.True(t, validation.IsValidationError(err))

	env.messages.Wait()
	calls := env.notifier.Calls()
	require.Len(t, calls, 2)
	senders := []int64{calls[0].senderID, calls[1].senderID}
	assert.ElementsMatch(t, []int64{alice.ID, carol.ID}, senders)
	assert.Equal(t, 2, calls[0].recipients)
}

func TestSendMessageUnknownSender(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.messages.SendMessage(context.Background(), authz.Actor{UserID: 9999}, MessageInput{Subject: "Hi", Body: "there"})
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, actor := env.register(t, "alice@example.com", "Alice")
	env.register(t, "carol@example.com", "Carol")

	today := models.Date(2024, time.September, 10)
	for day := 1; day <= 8; day++ {
		_, err := env.calendar.CreateEvent(ctx, actor, EventInput{Title: "Event", Date: models.Date(2024, time.September, day*3)})
		require.NoError(t, err)
	}
	for i := 0; i < 7; i++ {
		_, err := env.messages.SendMessage(ctx, actor, MessageInput{Subject: "News", Body: "Body"})
		require.NoError(t, err)
	}

	dash, err := env.dashboard.Dashboard(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, 2, dash.ParentCount)
	require.Len(t, dash.UpcomingEvents, 5)
	assert.Equal(t, models.Date(2024, time.September, 12), dash.UpcomingEvents[0].Date)
	assert.Len(t, dash.RecentMessages, 5)
}
