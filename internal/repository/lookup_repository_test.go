package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/consultoria-api/internal/models"
)

var lookupRowColumns = []string{"id", "name", "color", "sort_order", "active", "created_at", "updated_at"}

func TestLookupRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewPlanTypeRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM plan_types WHERE active = true ORDER BY sort_order ASC, name ASC")).
		WillReturnRows(sqlmock.NewRows(lookupRowColumns).
			AddRow("p1", "Mensal", "#3B82F6", 1, true, now, now).
			AddRow("p2", "Anual", "#3B82F6", 2, true, now, now))

	items, err := repo.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Mensal", items[0].Name)
	assert.Equal(t, 2, items[1].Order)
	assert.Equal(t, models.LookupKindPlanType, repo.Kind())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupRepositoryListIncludesInactive(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewTrainingPhaseRepository(db)

	mock.ExpectQuery(`FROM training_phases ORDER BY sort_order ASC, name ASC$`).
		WillReturnRows(sqlmock.NewRows(lookupRowColumns))

	items, err := repo.List(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupRepositoryExistsByName(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewPlanTypeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM plan_types WHERE name = $1 AND id <> $2 LIMIT 1")).
		WithArgs("Mensal", "p1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM plan_types WHERE name = $1 LIMIT 1")).
		WithArgs("Mensal").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByName(context.Background(), "Mensal", "p1")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.ExistsByName(context.Background(), "Mensal", "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupRepositoryMutations(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewTrainingPhaseRepository(db)

	mock.ExpectExec("INSERT INTO training_phases").
		WithArgs(sqlmock.AnyArg(), "Adaptação", "#10B981", 0, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE training_phases SET name = ?, color = ?, sort_order = ?, updated_at = ? WHERE id = ?")).
		WithArgs("Hipertrofia", "#10B981", 2, sqlmock.AnyArg(), "f1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE training_phases SET active = false, updated_at = $2 WHERE id = $1")).
		WithArgs("f1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	item := &models.Lookup{Name: "Adaptação", Color: "#10B981", Active: true}
	require.NoError(t, repo.Create(context.Background(), item))
	assert.NotEmpty(t, item.ID)

	require.NoError(t, repo.Update(context.Background(), &models.Lookup{ID: "f1", Name: "Hipertrofia", Color: "#10B981", Order: 2}))
	require.NoError(t, repo.Deactivate(context.Background(), "f1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
