package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/study-hall-api/internal/models"
	appErrors "github.com/noah-isme/study-hall-api/pkg/errors"
)

var hallRowColumns = []string{"id", "name", "capacity", "location", "description", "created_at", "updated_at"}

func TestStudyHallRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudyHallRepository(db)

	rows := sqlmock.NewRows(hallRowColumns).
		AddRow("h1", "Hall A", 40, "Floor 1", nil, time.Now(), time.Now()).
		AddRow("h2", "Hall B", 20, "Floor 2", "quiet zone", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + studyHallColumns + " FROM study_halls ORDER BY name")).WillReturnRows(rows)

	halls, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, halls, 2)
	assert.Nil(t, halls[0].Description)
	require.NotNil(t, halls[1].Description)
	assert.Equal(t, "quiet zone", *halls[1].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudyHallRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudyHallRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM study_halls WHERE id = ?")).WithArgs("nope").WillReturnRows(sqlmock.NewRows(hallRowColumns))

	_, err := repo.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStudyHallRepositoryExistsByName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudyHallRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM study_halls WHERE name = ? AND id <> ? LIMIT 1")).
		WithArgs("Hall A", "h1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM study_halls WHERE name = ? LIMIT 1")).
		WithArgs("Hall A").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))

	exists, err := repo.ExistsByName(context.Background(), "Hall A", "h1")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.ExistsByName(context.Background(), "Hall A", "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudyHallRepositoryCreateAndDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudyHallRepository(db)

	mock.ExpectExec("INSERT INTO study_halls").
		WithArgs(sqlmock.AnyArg(), "Hall A", int64(40), "Floor 1", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM study_halls WHERE id = ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	hall := &models.StudyHall{Name: "Hall A", Capacity: 40, Location: "Floor 1"}
	require.NoError(t, repo.Create(context.Background(), hall))
	assert.NotEmpty(t, hall.ID)
	require.NoError(t, repo.Delete(context.Background(), hall.ID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudyHallRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudyHallRepository(db)

	mock.ExpectExec("UPDATE study_halls SET name = ").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.StudyHall{ID: "gone", Name: "X", Capacity: 1, Location: "Y"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStudyHallRepositoryCreateDuplicateName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudyHallRepository(db)

	mock.ExpectExec("INSERT INTO study_halls").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.StudyHall{Name: "Hall A", Capacity: 40, Location: "Floor 1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrDuplicateName)
	assert.Equal(t, "DUPLICATE_NAME", appErrors.FromError(err).Code)
}
