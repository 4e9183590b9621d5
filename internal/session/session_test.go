package session_test

import (
	"errors"
	"testing"

	"LiveCanvas/internal/session"
	"LiveCanvas/internal/viewport"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*session.Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS views`).WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := session.New(db)
	require.NoError(t, err)
	return s, mock
}

func TestNew_SchemaFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec(`CREATE TABLE`).WillReturnError(errors.New("read-only"))

	_, err = session.New(db)
	assert.ErrorContains(t, err, "read-only")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadView_Found(t *testing.T) {
	// Arrange
	s, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT x, y, scale FROM views WHERE board_id = \?`).
		WithArgs("main").
		WillReturnRows(sqlmock.NewRows([]string{"x", "y", "scale"}).AddRow(10.0, -5.0, 2.0))

	// Act
	v, err := s.LoadView("main")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, viewport.View{X: 10, Y: -5, Scale: 2}, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadView_NotFound(t *testing.T) {
	s, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT x, y, scale FROM views`).
		WithArgs("main").
		WillReturnRows(sqlmock.NewRows([]string{"x", "y", "scale"}))

	_, err := s.LoadView("main")
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadView_RejectsBadScale(t *testing.T) {
	s, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT x, y, scale FROM views`).
		WithArgs("main").
		WillReturnRows(sqlmock.NewRows([]string{"x", "y", "scale"}).AddRow(0.0, 0.0, 0.0))

	_, err := s.LoadView("main")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSaveView(t *testing.T) {
	s, mock := setupMockDB(t)
	mock.ExpectExec(`INSERT INTO views .* ON CONFLICT\(board_id\) DO UPDATE`).
		WithArgs("main", 1.0, 2.0, 0.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.SaveView("main", viewport.View{X: 1, Y: 2, Scale: 0.5}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveView_Error(t *testing.T) {
	s, mock := setupMockDB(t)
	mock.ExpectExec(`INSERT INTO views`).WillReturnError(errors.New("disk full"))

	err := s.SaveView("main", viewport.Identity)
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDraftLifecycle(t *testing.T) {
	s, mock := setupMockDB(t)
	mock.ExpectExec(`INSERT INTO drafts`).
		WithArgs("main", "n1", "half typed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT object_id, text, saved_at FROM drafts WHERE board_id = \?`).
		WithArgs("main").
		WillReturnRows(sqlmock.NewRows([]string{"object_id", "text", "saved_at"}).AddRow("n1", "half typed", int64(1700000000000)))
	mock.ExpectExec(`DELETE FROM drafts WHERE board_id = \?`).
		WithArgs("main").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT object_id, text, saved_at FROM drafts`).
		WithArgs("main").
		WillReturnRows(sqlmock.NewRows([]string{"object_id", "text", "saved_at"}))

	require.NoError(t, s.SaveDraft("main", session.Draft{ObjectID: "n1", Text: "half typed"}))

	d, err := s.LoadDraft("main")
	require.NoError(t, err)
	assert.Equal(t, "n1", d.ObjectID)
	assert.Equal(t, "half typed", d.Text)
	assert.Equal(t, int64(1700000000000), d.SavedAt.UnixMilli())

	require.NoError(t, s.ClearDraft("main"))
	_, err = s.LoadDraft("main")
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveDraft_RequiresObject(t *testing.T) {
	s, mock := setupMockDB(t)
	assert.Error(t, s.SaveDraft("main", session.Draft{Text: "orphan"}))
	assert.NoError(t, mock.ExpectationsWereMet(), "nothing is written")
}

func TestClose(t *testing.T) {
	s, mock := setupMockDB(t)
	mock.ExpectClose()
	require.NoError(t, s.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
