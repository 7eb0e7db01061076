package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ELENA-QPA/elena-case-sync/internal/cache"
	"github.com/ELENA-QPA/elena-case-sync/internal/config"
	"github.com/ELENA-QPA/elena-case-sync/internal/database"
	"github.com/ELENA-QPA/elena-case-sync/internal/importer"
	"github.com/ELENA-QPA/elena-case-sync/internal/provider"
	"github.com/ELENA-QPA/elena-case-sync/internal/reconciler"
	"github.com/ELENA-QPA/elena-case-sync/internal/syncer"
	"github.com/ELENA-QPA/elena-case-sync/pkg/logger"
)

type stubClient struct {
	summary *provider.ChangeSummary
	records []provider.ChangeRecord
	err     error
}

func (s *stubClient) FetchChangeSummary(ctx context.Context, date time.Time) (*provider.ChangeSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.summary, nil
}

func (s *stubClient) FetchAllChanges(ctx context.Context, date time.Time) ([]provider.ChangeRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func setupRouter(t *testing.T, client *stubClient) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	cfg := &config.Config{
		SyncSchedules:     []string{"0 6 * * *"},
		BatchSize:         10,
		ScheduledErrorCap: 2,
		ManualErrorCap:    5,
		CaseCodePrefix:    "EL",
	}

	store := cache.NewStore(time.Minute)
	engine := reconciler.NewEngine(db, log, nil, cfg.CaseCodePrefix)
	imp := importer.New(engine, log)
	orch := syncer.New(cfg, db, client, engine, store, log)

	router := gin.New()
	SetupRoutes(router, db, orch, engine, imp, store, log, cfg)
	return router, db
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestHealthCheck(t *testing.T) {
	router, _ := setupRouter(t, &stubClient{})

	w, resp := doJSON(t, router, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, true, resp["database"])
}

func TestSyncStatusEmpty(t *testing.T) {
	router, _ := setupRouter(t, &stubClient{})

	w, resp := doJSON(t, router, http.MethodGet, "/api/sync/status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Nil(t, resp["last_sync"])
}

func TestSyncTodayWritesRunAndStatus(t *testing.T) {
	client := &stubClient{
		summary: &provider.ChangeSummary{HasChanges: true},
		records: []provider.ChangeRecord{
			{
				Docket:     "11001310300120250012300",
				Office:     "JUZGADO 03 LABORAL CIRCUITO BOGOTA",
				Plaintiffs: "Ana Ruiz",
				LastAction: "Auto admisorio",
			},
		},
	}
	router, db := setupRouter(t, client)

	w, resp := doJSON(t, router, http.MethodPost, "/api/sync/today?user_id=tester", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])

	summary := resp["summary"].(map[string]interface{})
	assert.EqualValues(t, 1, summary["created"])

	var run database.SyncRun
	require.NoError(t, db.Order("id DESC").First(&run).Error)
	assert.Equal(t, database.TriggerManual, run.TriggerSource)
	assert.Equal(t, database.StatusSuccess, run.Status)

	w, resp = doJSON(t, router, http.MethodGet, "/api/sync/status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", resp["status"])
}

func TestSyncTodayProviderFailure(t *testing.T) {
	client := &stubClient{err: provider.ErrAuth}
	router, _ := setupRouter(t, client)

	w, resp := doJSON(t, router, http.MethodPost, "/api/sync/today", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, false, resp["success"])
}

func TestSyncHistoryValidation(t *testing.T) {
	router, _ := setupRouter(t, &stubClient{})

	t.Run("missing start_date", func(t *testing.T) {
		w, _ := doJSON(t, router, http.MethodPost, "/api/sync/history", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed start_date", func(t *testing.T) {
		w, _ := doJSON(t, router, http.MethodPost, "/api/sync/history", `{"start_date":"29-08-2026"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("future start_date", func(t *testing.T) {
		future := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
		w, _ := doJSON(t, router, http.MethodPost, "/api/sync/history", `{"start_date":"`+future+`"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCaseLifecycleEndpoints(t *testing.T) {
	client := &stubClient{
		summary: &provider.ChangeSummary{HasChanges: true},
		records: []provider.ChangeRecord{
			{
				Docket: "11001310300120250012300",
				Office: "JUZGADO 03 LABORAL CIRCUITO BOGOTA",
			},
		},
	}
	router, _ := setupRouter(t, client)

	w, _ := doJSON(t, router, http.MethodPost, "/api/sync/today", "")
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doJSON(t, router, http.MethodGet, "/api/cases/11001310300120250012300/states", "")
	require.Equal(t, http.StatusOK, w.Code)
	states := resp["states"].([]interface{})
	assert.Contains(t, states, string(reconciler.StateAdmitido))

	w, resp = doJSON(t, router, http.MethodPost, "/api/cases/11001310300120250012300/state",
		`{"state":"`+string(reconciler.StateSentencia)+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.NotEmpty(t, resp["valid_next"])

	w, resp = doJSON(t, router, http.MethodPost, "/api/cases/11001310300120250012300/state",
		`{"state":"`+string(reconciler.StateAdmitido)+`"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])

	w, _ = doJSON(t, router, http.MethodGet, "/api/cases/00000000000000000000000/states", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportEndpoint(t *testing.T) {
	router, db := setupRouter(t, &stubClient{})

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Radicado", "Despacho", "Demandantes"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"11001310300120250099900", "JUZGADO 01 CIVIL MUNICIPAL DE CALI", "Luis Prada"}))
	book, err := f.WriteToBuffer()
	require.NoError(t, err)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "cases.xlsx")
	require.NoError(t, err)
	_, err = part.Write(book.Bytes())
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var kase database.Case
	require.NoError(t, db.Where("docket = ?", "11001310300120250099900").First(&kase).Error)

	var run database.SyncRun
	require.NoError(t, db.Order("id DESC").First(&run).Error)
	assert.Equal(t, database.TriggerImport, run.TriggerSource)
}

func TestCacheStatsEndpoint(t *testing.T) {
	router, _ := setupRouter(t, &stubClient{})

	w, resp := doJSON(t, router, http.MethodGet, "/api/cache/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.NotNil(t, resp["stats"])
}
