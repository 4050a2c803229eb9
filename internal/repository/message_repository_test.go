package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-booking-api/internal/models"
)

func messageRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "seq", "sender_id", "receiver_id", "appointment_id", "content", "created_at",
		"sender_ref", "sender_name", "sender_email",
		"receiver_ref", "receiver_name", "receiver_email",
	})
}

func TestCreateMessageReturnsSeq(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO messages")).
		WithArgs(sqlmock.AnyArg(), testUserID, testTeacherID, sqlmock.AnyArg(), "Halo", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(42))

	msg := &models.Message{SenderID: testUserID, ReceiverID: testTeacherID, Content: "Halo"}
	require.NoError(t, repo.Create(context.Background(), msg))
	assert.Equal(t, int64(42), msg.Seq)
	assert.NotEmpty(t, msg.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBetweenIsSymmetricQuery(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMessageRepository(db)

	now := time.Now()
	rows := messageRows().
		AddRow("m1", 1, testUserID, testTeacherID, nil, "Halo", now, testUserID, "Siti", "siti@example.com", testTeacherID, "Budi", "budi@example.com").
		AddRow("m2", 2, testTeacherID, testUserID, nil, "Hai", now, testTeacherID, "Budi", "budi@example.com", nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE (m.sender_id = $1 AND m.receiver_id = $2) OR (m.sender_id = $2 AND m.receiver_id = $1) ORDER BY m.created_at ASC, m.seq ASC")).
		WithArgs(testTeacherID, testUserID).
		WillReturnRows(rows)

	views, err := repo.ListBetween(context.Background(), testTeacherID, testUserID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "Siti", views[0].Sender.Name)
	assert.Equal(t, "budi@example.com", views[0].Receiver.Email)
	assert.Nil(t, views[1].Receiver)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForUserNewestFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.sender_id = $1 OR m.receiver_id = $1 ORDER BY m.created_at DESC, m.seq DESC")).
		WithArgs(testUserID).
		WillReturnRows(messageRows())

	views, err := repo.ListForUser(context.Background(), testUserID)
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestListByAppointment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMessageRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.appointment_id = $1 ORDER BY m.created_at ASC, m.seq ASC")).
		WithArgs(testAppointmentID).
		WillReturnRows(messageRows().AddRow("m1", 1, testUserID, testTeacherID, testAppointmentID, "Halo", now, testUserID, "Siti", "s@x.com", testTeacherID, "Budi", "b@x.com"))

	views, err := repo.ListByAppointment(context.Background(), testAppointmentID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, testAppointmentID, *views[0].AppointmentID)
}

func TestListWithMalformedIDSkipsQuery(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMessageRepository(db)

	views, err := repo.ListBetween(context.Background(), testUserID, "nope")
	require.NoError(t, err)
	assert.Empty(t, views)
	assert.NoError(t, mock.ExpectationsWereMet())
}
