package importer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ELENA-QPA/elena-case-sync/internal/database"
	"github.com/ELENA-QPA/elena-case-sync/internal/reconciler"
	"github.com/ELENA-QPA/elena-case-sync/pkg/logger"
)

func setupImporter(t *testing.T) (*Importer, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	log, err := logger.NewLogger("error", "console")
	require.NoError(t, err)

	engine := reconciler.NewEngine(db, log, nil, "EL")
	return New(engine, log), db
}

func buildSheet(t *testing.T, rows [][]interface{}) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestImportFromSpreadsheet(t *testing.T) {
	imp, db := setupImporter(t)

	file := buildSheet(t, [][]interface{}{
		{"Número", "Despacho", "Demandantes", "Demandados", "Última Actuación"},
		{"11001310300120250012300", "JUZGADO 03 LABORAL CIRCUITO BOGOTA", "Ana Ruiz", "", "Auto admisorio"},
		{"11001310300120250045600", "JUZGADO 05 CIVIL DEL CIRCUITO DE CALI", "Pedro Mejia", "Rappi SAS", ""},
		{"", "JUZGADO SIN NUMERO", "Nadie", "", ""},
	})

	summary, err := imp.ImportFromSpreadsheet(file)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Errored)
	assert.Equal(t, 3, summary.Total)

	var kase database.Case
	require.NoError(t, db.Where("docket = ?", "11001310300120250012300").First(&kase).Error)
	assert.Equal(t, "Juzgado 03 Laboral del Circuito de Bogotá D.C.", kase.OfficeName)

	var rappi database.ProceduralParty
	require.NoError(t, db.Where("role = ? AND name = ?", database.RoleDefendant, "Rappi S.A.S.").First(&rappi).Error)
}

func TestImportRejectsUnusableSheets(t *testing.T) {
	imp, _ := setupImporter(t)

	t.Run("not a spreadsheet", func(t *testing.T) {
		_, err := imp.ImportFromSpreadsheet(bytes.NewReader([]byte("plain text")))
		require.Error(t, err)
	})

	t.Run("no data rows", func(t *testing.T) {
		file := buildSheet(t, [][]interface{}{{"Número"}})
		_, err := imp.ImportFromSpreadsheet(file)
		require.Error(t, err)
	})

	t.Run("no recognized columns", func(t *testing.T) {
		file := buildSheet(t, [][]interface{}{
			{"foo", "bar"},
			{"1", "2"},
		})
		_, err := imp.ImportFromSpreadsheet(file)
		require.Error(t, err)
	})
}

func TestImportIsIdempotent(t *testing.T) {
	imp, db := setupImporter(t)

	rows := [][]interface{}{
		{"Radicado", "Juzgado"},
		{"11001310300120250012300", "JUZGADO 03 LABORAL CIRCUITO BOGOTA"},
	}

	summary, err := imp.ImportFromSpreadsheet(buildSheet(t, rows))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)

	summary, err = imp.ImportFromSpreadsheet(buildSheet(t, rows))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)

	var count int64
	db.Model(&database.Case{}).Count(&count)
	assert.EqualValues(t, 1, count)
}
