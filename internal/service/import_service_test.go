package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/consultoria-api/internal/models"
	appErrors "github.com/noah-isme/consultoria-api/pkg/errors"
)

type importFixture struct {
	svc      *ImportService
	students *memoryStudentStore
	plans    *memoryLookupStore
	phases   *memoryLookupStore
}

func newImportFixture(opts ImportOptions) importFixture {
	plans := newMemoryLookupStore(models.LookupKindPlanType, "Mensal", "Anual")
	phases := newMemoryLookupStore(models.LookupKindTrainingPhase, "Adaptação")
	students := newMemoryStudentStore(plans, phases)
	svc := NewImportService(students, NewReferenceResolver(plans, phases), nil, zap.NewNop(), opts)
	return importFixture{svc: svc, students: students, plans: plans, phases: phases}
}

const importHeader = "nome,email,plano,data_inicio_plano,data_vencimento_plano,fase_treino,status_treino,status_pagamento,desconto,tipo_desconto,observacoes\n"

func TestImportRowsAreIndependent(t *testing.T) {
	fx := newImportFixture(ImportOptions{})
	csv := importHeader +
		"Ana,ana@example.com,Mensal,2024-01-01,2024-02-01,,,,,,\n" +
		"Bruno,,Trimestral,2024-01-01,2024-04-01,,,,,,\n" +
		"Carla,,Mensal,xx,2024-02-01,,,,,,\n" +
		"Davi,,Anual,2024-01-01,2025-01-01,,Em Andamento,Pago,50,valor,\"linha 1, linha 2\"\n"

	result, err := fx.svc.ImportCSV(context.Background(), []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, []string{
		`Plano "Trimestral" não encontrado para Bruno`,
		`Erro ao importar Carla: data_inicio_plano inválido: "xx"`,
	}, result.Errors)

	stored := fx.students.all()
	require.Len(t, stored, 2)
	assert.Equal(t, "Ana", stored[0].Name)
	assert.Equal(t, "Davi", stored[1].Name)
	assert.Equal(t, "linha 1, linha 2", *stored[1].Observations)
	assert.Equal(t, models.PaymentStatusPaid, stored[1].PaymentStatus)
	assert.Equal(t, 50.0, stored[1].Discount)
}

func TestImportAppliesDefaults(t *testing.T) {
	fx := newImportFixture(ImportOptions{})
	result, err := fx.svc.ImportCSV(context.Background(), []byte("nome,plano,data_inicio_plano,data_vencimento_plano\nAna,Mensal,01/01/2024,01/02/2024\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Nil(t, result.Errors)
	assert.Empty(t, result.Warnings)

	st := fx.students.all()[0]
	assert.Equal(t, fx.plans.idOf("Mensal"), st.PlanTypeID)
	assert.Equal(t, date(2024, 1, 1), st.PlanStartDate)
	assert.Equal(t, date(2024, 2, 1), st.PlanExpiryDate)
	assert.Equal(t, models.TrainingStatusNotStarted, st.TrainingStatus)
	assert.Equal(t, models.PaymentStatusPending, st.PaymentStatus)
	assert.Equal(t, 0.0, st.Discount)
	assert.Equal(t, models.DiscountTypeAmount, st.DiscountType)
	assert.Nil(t, st.Email)
	assert.Nil(t, st.TrainingPhaseID)
	assert.Nil(t, st.TrainingStartDate)
}

func TestImportWarnsOnPhaseMissAndInvalidDiscount(t *testing.T) {
	fx := newImportFixture(ImportOptions{})
	csv := importHeader + "Ana,,Mensal,2024-01-01,2024-02-01,Força,,,dez,,\n"
	result, err := fx.svc.ImportCSV(context.Background(), []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Nil(t, result.Errors)
	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], `Fase "Força"`)
	assert.Contains(t, result.Warnings[1], `Desconto "dez"`)

	st := fx.students.all()[0]
	assert.Nil(t, st.TrainingPhaseID)
	assert.Equal(t, 0.0, st.Discount)
}

func TestImportResolvesPhase(t *testing.T) {
	fx := newImportFixture(ImportOptions{})
	csv := importHeader + "Ana,,Mensal,2024-01-01,2024-02-01,Adaptação,,,,,\n"
	_, err := fx.svc.ImportCSV(context.Background(), []byte(csv))
	require.NoError(t, err)
	st := fx.students.all()[0]
	require.NotNil(t, st.TrainingPhaseID)
	assert.Equal(t, fx.phases.idOf("Adaptação"), *st.TrainingPhaseID)
}

func TestImportStoreFailureIsDiagnostic(t *testing.T) {
	fx := newImportFixture(ImportOptions{})
	fx.students.failOn["Bruno"] = errors.New("duplicate key")
	csv := importHeader +
		"Bruno,,Mensal,2024-01-01,2024-02-01,,,,,,\n" +
		"Ana,,Mensal,2024-01-01,2024-02-01,,,,,,\n"
	result, err := fx.svc.ImportCSV(context.Background(), []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, []string{"Erro ao importar Bruno: duplicate key"}, result.Errors)
}

func TestImportMissingNameFails(t *testing.T) {
	fx := newImportFixture(ImportOptions{})
	result, err := fx.svc.ImportCSV(context.Background(), []byte(importHeader+",,Mensal,2024-01-01,2024-02-01,,,,,,\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Imported)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "Erro ao importar "))
}

func TestImportUnknownEnumsPassThroughUnlessStrict(t *testing.T) {
	csv := importHeader + "Ana,,Mensal,2024-01-01,2024-02-01,,Pausado,,,,\n"

	lenient := newImportFixture(ImportOptions{})
	result, err := lenient.svc.ImportCSV(context.Background(), []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, models.TrainingStatus("Pausado"), lenient.students.all()[0].TrainingStatus)

	strict := newImportFixture(ImportOptions{StrictMode: true})
	result, err = strict.svc.ImportCSV(context.Background(), []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Imported)
	assert.Equal(t, []string{"Erro ao importar Ana: status_treino inválido: Pausado"}, result.Errors)
}

func TestImportPlanDateOrder(t *testing.T) {
	csv := importHeader + "Ana,,Mensal,2024-03-01,2024-02-01,,,,,,\n"

	result, err := newImportFixture(ImportOptions{}).svc.ImportCSV(context.Background(), []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	result, err = newImportFixture(ImportOptions{EnforcePlanDateOrder: true}).svc.ImportCSV(context.Background(), []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Imported)
	assert.Len(t, result.Errors, 1)
}

func TestImportCancelledContext(t *testing.T) {
	fx := newImportFixture(ImportOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fx.svc.ImportCSV(ctx, []byte(importHeader+"Ana,,Mensal,2024-01-01,2024-02-01,,,,,,\n"))
	require.Error(t, err)
	assert.Empty(t, fx.students.all())
}

func TestImportFileFormats(t *testing.T) {
	fx := newImportFixture(ImportOptions{})

	_, err := fx.svc.ImportFile(context.Background(), "foto.png", "image/png", strings.NewReader("\x89PNG"))
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrUnsupportedFormat.Code, appErr.Code)

	_, err = fx.svc.ImportFile(context.Background(), "alunos.csv", "text/csv", strings.NewReader(""))
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrMissingInput.Code, appErr.Code)

	result, err := fx.svc.ImportFile(context.Background(), "alunos.csv", "text/csv", strings.NewReader(importHeader+"Ana,,Mensal,2024-01-01,2024-02-01,,,,,,\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
}

func TestImportTemplateRoundTrips(t *testing.T) {
	fx := newImportFixture(ImportOptions{})
	file, err := fx.svc.Template("")
	require.NoError(t, err)
	assert.Equal(t, "modelo_importacao_alunos.csv", file.Filename)

	result, err := fx.svc.ImportCSV(context.Background(), file.Content)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Nil(t, result.Errors)

	xlsx, err := fx.svc.Template(models.ExportFormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "modelo_importacao_alunos.xlsx", xlsx.Filename)

	_, err = fx.svc.Template(models.ExportFormatPDF)
	assert.Error(t, err)
}

func TestImportWarningsOnlyForCreatedRows(t *testing.T) {
	fx := newImportFixture(ImportOptions{})
	fx.students.failOn["Ana"] = errors.New("db down")
	csv := importHeader +
		"Ana,,Mensal,2024-01-01,2024-02-01,Força,,,,,\n" +
		"Bia,,Mensal,2024-01-01,2024-02-01,Força,,,,,\n"

	result, err := fx.svc.ImportCSV(context.Background(), []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, []string{"Erro ao importar Ana: db down"}, result.Errors)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "para Bia")
}

// cancelAfterFirst cancels the import context once the first student is stored.
type cancelAfterFirst struct {
	inner  studentCreator
	cancel context.CancelFunc
}

func (c *cancelAfterFirst) Create(ctx context.Context, student *models.Student) error {
	err := c.inner.Create(ctx, student)
	c.cancel()
	return err
}

func TestImportCancelledMidBatchKeepsPartialResult(t *testing.T) {
	fx := newImportFixture(ImportOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := NewImportService(&cancelAfterFirst{inner: fx.students, cancel: cancel}, NewReferenceResolver(fx.plans, fx.phases), nil, zap.NewNop(), ImportOptions{})

	csv := importHeader +
		"Ana,,Mensal,2024-01-01,2024-02-01,,,,,,\n" +
		"Bia,,Mensal,2024-01-01,2024-02-01,,,,,,\n"
	result, err := svc.ImportCSV(ctx, []byte(csv))
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Imported)
	require.Len(t, fx.students.all(), 1)
	assert.Equal(t, "Ana", fx.students.all()[0].Name)
}
