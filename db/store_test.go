package db

import (
	"context"
	"regexp"
	"testing"
	"time"

	"lms-module/errors"
	"lms-module/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	enrollmentCols = []string{"id", "student_id", "course_id", "payment_id", "amount", "source", "created_at"}
	studentCols    = []string{"id", "purchaser_id", "email", "first_name", "last_name", "avatar_url", "created_at"}
	courseCols     = []string{"id", "title", "description", "price", "is_active", "created_at", "updated_at"}
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		conn.Close()
	})
	return NewStore(conn), mock
}

func q(s string) string {
	return regexp.QuoteMeta(s)
}

func TestCreateEnrollmentInserts(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(q("INSERT INTO enrollments")).
		WithArgs(sqlmock.AnyArg(), "s1", "c1", "XYZ123", sqlmock.AnyArg(), models.SourceMpesa).
		WillReturnRows(sqlmock.NewRows(enrollmentCols).AddRow("e1", "s1", "c1", "XYZ123", "1500.00", models.SourceMpesa, now))

	e, created, err := store.CreateEnrollment(context.Background(), models.NewEnrollment{
		StudentID: "s1",
		CourseID:  "c1",
		PaymentID: "XYZ123",
		Amount:    decimal.NewFromInt(1500),
		Source:    models.SourceMpesa,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "e1", e.ID)
	assert.True(t, e.Amount.Equal(decimal.NewFromInt(1500)))
}

func TestCreateEnrollmentDuplicateIsBenign(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(q("INSERT INTO enrollments")).
		WillReturnRows(sqlmock.NewRows(enrollmentCols))
	mock.ExpectQuery(q("FROM enrollments")).
		WithArgs("s1", "c1", "XYZ123").
		WillReturnRows(sqlmock.NewRows(enrollmentCols).AddRow("e1", "s1", "c1", "XYZ123", "1500.00", models.SourceMpesa, now))

	e, created, err := store.CreateEnrollment(context.Background(), models.NewEnrollment{
		StudentID: "s1", CourseID: "c1", PaymentID: "XYZ123", Amount: decimal.NewFromInt(1500), Source: models.SourceMpesa,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "e1", e.ID)
}

func TestCreateEnrollmentFailureIsPersistenceError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(q("INSERT INTO enrollments")).
		WillReturnError(&pq.Error{Code: foreignKeyViolation, Message: "violates foreign key constraint"})

	_, created, err := store.CreateEnrollment(context.Background(), models.NewEnrollment{StudentID: "s1", CourseID: "missing", PaymentID: "p"})
	assert.False(t, created)
	assert.True(t, errors.IsKind(err, errors.Persistence))
}

func TestUpsertStudentNeverOverwrites(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Now().Add(-time.Hour)

	mock.ExpectExec(q("ON CONFLICT (purchaser_id) DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), "u1", "new@example.com", "New", "Name", "").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("FROM students WHERE purchaser_id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(studentCols).AddRow("s1", "u1", "old@example.com", "Old", "Name", "", created))

	st, err := store.UpsertStudent(context.Background(), models.PurchaserProfile{
		ID: "u1", Email: "new@example.com", FirstName: "New", LastName: "Name",
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", st.ID)
	assert.Equal(t, "old@example.com", st.Email)
}

func TestGetStudentByPurchaserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(q("FROM students WHERE purchaser_id = $1")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(studentCols))

	_, err := store.GetStudentByPurchaser(context.Background(), "ghost")
	assert.True(t, errors.IsKind(err, errors.NotFound))
}

func TestGetCourse(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(q("FROM courses WHERE id = $1")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(courseCols).AddRow("c1", "Go 101", "", "1500.00", true, now, now))
	mock.ExpectQuery(q("FROM courses WHERE id = $1")).
		WithArgs("c2").
		WillReturnRows(sqlmock.NewRows(courseCols).AddRow("c2", "Draft", "", nil, true, now, now))
	mock.ExpectQuery(q("FROM courses WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(courseCols))

	c, err := store.GetCourse(context.Background(), "c1")
	require.NoError(t, err)
	require.True(t, c.Price.Valid)
	assert.Equal(t, "1500", c.Price.Decimal.String())

	c, err = store.GetCourse(context.Background(), "c2")
	require.NoError(t, err)
	assert.False(t, c.Price.Valid)

	_, err = store.GetCourse(context.Background(), "missing")
	assert.True(t, errors.IsKind(err, errors.NotFound))
}

func TestCreateCourseConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(q("INSERT INTO courses")).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	_, err := store.CreateCourse(context.Background(), models.Course{ID: "c1", Title: "Go 101"})
	assert.True(t, errors.IsKind(err, errors.Conflict))
}

func TestLogCallbackCountsDeliveries(t *testing.T) {
	store, mock := newMockStore(t)
	code := 0

	mock.ExpectQuery(q("INSERT INTO mpesa_callbacks")).
		WithArgs("ws_CO_1", "m1", sqlmock.AnyArg(), `{"Body":{}}`).
		WillReturnRows(sqlmock.NewRows([]string{"delivery_count"}).AddRow(2))

	n, err := store.LogCallback(context.Background(), "ws_CO_1", "m1", &code, []byte(`{"Body":{}}`))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMarkPaymentRequestKeepsPaid(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(q("UPDATE payment_requests")).
		WithArgs("m1", models.PaymentStatusFailed, "", "Request cancelled by user", models.PaymentStatusPaid).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.MarkPaymentRequest(context.Background(), "m1", models.PaymentStatusFailed, "", "Request cancelled by user"))
}

func TestResolveDLQMessageNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(q("UPDATE dlq_messages")).
		WithArgs("nope", "handled").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.ResolveDLQMessage(context.Background(), "nope", "handled")
	assert.True(t, errors.IsKind(err, errors.NotFound))
}

func TestDLQStats(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(q("FROM dlq_messages")).
		WillReturnRows(sqlmock.NewRows([]string{"total", "unresolved", "resolved"}).AddRow(5, 2, 3))

	stats, err := store.DLQStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DLQStats{Total: 5, Unresolved: 2, Resolved: 3}, *stats)
}

func TestMigrateCreatesTablesInOrder(t *testing.T) {
	store, mock := newMockStore(t)

	for _, table := range []string{"courses", "students", "enrollments", "payment_requests", "mpesa_callbacks", "dlq_messages"} {
		mock.ExpectExec(q("CREATE TABLE IF NOT EXISTS " + table + " (")).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, Migrate(context.Background(), store.db))
}
