package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"choco-backend/internal/chat"
	"choco-backend/internal/client/agent"
	"choco-backend/internal/config"
	"choco-backend/internal/fileproc"
	"choco-backend/internal/folder"
	"choco-backend/internal/job"
	"choco-backend/internal/report"
	"choco-backend/internal/storage"
	"choco-backend/internal/store"
)

const testUser = "user-1"

// newTestServer builds a full server over a temp sqlite database and
// temp blob root, with the agent disabled.
func newTestServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()
	dir := t.TempDir()
	logger := zerolog.Nop()

	db, err := store.Open(store.Config{
		Driver: store.DriverSQLite,
		DSN:    filepath.Join(dir, "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()

	jobStore := job.NewStore(db)
	require.NoError(t, jobStore.EnsureSchema(ctx))
	jobs := job.NewService(job.Config{
		OutputDir: filepath.Join(dir, "reports"),
		Workers:   2,
	}, jobStore, job.GeneratorRenderer{Logger: logger}, logger)
	t.Cleanup(func() { jobs.Close() })

	chats := chat.NewService(db, logger)
	require.NoError(t, chats.EnsureSchema(ctx))

	blobs, err := storage.NewFS(filepath.Join(dir, "blobs"), logger)
	require.NoError(t, err)
	folders := folder.NewService(db, blobs, logger)
	require.NoError(t, folders.EnsureSchema(ctx))

	files := fileproc.NewProcessor(fileproc.DefaultMaxSize, logger)

	cfg := &config.Config{}
	cfg.Server.Listen = ":0"
	cfg.Server.ShutdownTimeout = time.Second
	cfg.Files.MaxUploadSize = 10 << 20

	agentClient := agent.NewClient(&config.AgentConfig{Enabled: false}, nil, logger)

	srv := New(cfg, jobs, chats, folders, files, agentClient, logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, srv
}

// doJSON sends a JSON request with the test identity attached.
func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", testUser)
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// uploadFile posts a multipart file to the given path.
func uploadFile(t *testing.T, ts *httptest.Server, path, filename string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", testUser)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIdentityRequired(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/api/jobs")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGenerateSync(t *testing.T) {
	ts, _ := newTestServer(t)

	cfg := report.Config{
		Sheets: []report.SheetConfig{
			{
				Name:    "Data",
				Headers: []report.HeaderConfig{{Title: "Name"}, {Title: "Count"}},
				Data:    [][]any{{"alpha", 1.0}, {"beta", 2.0}},
			},
		},
	}

	resp := doJSON(t, ts, http.MethodPost, "/api/reports/generate?filename=out.xlsx", cfg)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "out.xlsx")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	got, err := f.GetCellValue("Data", "A2")
	require.NoError(t, err)
	assert.Equal(t, "alpha", got)
}

func TestGenerateSyncBadConfig(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/reports/generate", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	req.Header.Set("X-User-ID", testUser)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestValidateEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	cfg := report.Config{
		Sheets: []report.SheetConfig{
			{
				Name:   "S",
				Data:   [][]any{{"x"}},
				Charts: []report.ChartDescriptor{{Type: "sunburst", DataRange: "A1:A1"}},
			},
		},
	}

	resp := doJSON(t, ts, http.MethodPost, "/api/reports/validate", cfg)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result report.ValidationResult
	decodeBody(t, resp, &result)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}

func TestExampleEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doJSON(t, ts, http.MethodGet, "/api/reports/example", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cfg report.Config
	decodeBody(t, resp, &cfg)
	require.NotEmpty(t, cfg.Sheets)
	assert.NotEmpty(t, cfg.Sheets[0].Headers)
}

func TestParseRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t)

	// Render a workbook locally, then parse it through the endpoint.
	gen := report.NewGenerator(zerolog.Nop())
	path := filepath.Join(t.TempDir(), "roundtrip.xlsx")
	_, err := gen.GenerateReport(&report.Config{
		Sheets: []report.SheetConfig{
			{
				Name:    "Data",
				Headers: []report.HeaderConfig{{Title: "City"}},
				Data:    [][]any{{"Oslo"}},
			},
		},
	}, path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	resp := uploadFile(t, ts, "/api/reports/parse", "roundtrip.xlsx", data)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ws report.WorkbookStructure
	decodeBody(t, resp, &ws)
	require.Len(t, ws.Sheets, 1)
	assert.Equal(t, "Data", ws.Sheets[0].Name)
	assert.NotEmpty(t, ws.Sheets[0].Cells)
}

func TestJobLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)

	cfg := &report.Config{
		Sheets: []report.SheetConfig{
			{Name: "S", Headers: []report.HeaderConfig{{Title: "A"}}, Data: [][]any{{"v"}}},
		},
	}

	resp := doJSON(t, ts, http.MethodPost, "/api/jobs", jobSubmitRequest{Filename: "mine.xlsx", Config: cfg})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var submitted job.Job
	decodeBody(t, resp, &submitted)
	require.NotEmpty(t, submitted.ID)

	// Poll until the job reaches a terminal state.
	deadline := time.Now().Add(5 * time.Second)
	var current job.Job
	for {
		resp = doJSON(t, ts, http.MethodGet, "/api/jobs/"+submitted.ID, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		decodeBody(t, resp, &current)
		if current.Status == job.StatusCompleted || current.Status == job.StatusFailed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck in status %s", current.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.Equal(t, job.StatusCompleted, current.Status)
	assert.Equal(t, 100, current.Progress)

	// Download
	resp = doJSON(t, ts, http.MethodGet, "/api/jobs/"+submitted.ID+"/download", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "mine.xlsx")
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	// List
	resp = doJSON(t, ts, http.MethodGet, "/api/jobs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var jobs []job.Job
	decodeBody(t, resp, &jobs)
	assert.Len(t, jobs, 1)

	// Delete
	resp = doJSON(t, ts, http.MethodDelete, "/api/jobs/"+submitted.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, ts, http.MethodGet, "/api/jobs/"+submitted.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJobHiddenFromOtherUsers(t *testing.T) {
	ts, _ := newTestServer(t)

	cfg := &report.Config{Sheets: []report.SheetConfig{{Name: "S", Data: [][]any{{"v"}}}}}
	resp := doJSON(t, ts, http.MethodPost, "/api/jobs", jobSubmitRequest{Config: cfg})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var submitted job.Job
	decodeBody(t, resp, &submitted)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/jobs/"+submitted.ID, nil)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", "someone-else")
	other, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer other.Body.Close()
	assert.Equal(t, http.StatusNotFound, other.StatusCode)
}

func TestChatFlowWithAgentDisabled(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doJSON(t, ts, http.MethodPost, "/api/chats", chatCreateRequest{Title: "Planning"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var c chat.Chat
	decodeBody(t, resp, &c)
	assert.Equal(t, "Planning", c.Title)

	resp = doJSON(t, ts, http.MethodPost, "/api/chats/"+c.ID+"/messages", chatSendRequest{Content: "hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sent chatSendResponse
	decodeBody(t, resp, &sent)
	require.NotNil(t, sent.UserMessage)
	assert.Nil(t, sent.AssistantMessage)

	resp = doJSON(t, ts, http.MethodGet, "/api/chats/"+c.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var messages []chat.Message
	decodeBody(t, resp, &messages)
	assert.Len(t, messages, 1)

	resp = doJSON(t, ts, http.MethodPatch, "/api/chats/"+c.ID, chatRenameRequest{Title: "Renamed"})
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, ts, http.MethodDelete, "/api/chats/"+c.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestFolderAndFileFlow(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doJSON(t, ts, http.MethodPost, "/api/folders", folderCreateRequest{Name: "Invoices"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var fld folder.Folder
	decodeBody(t, resp, &fld)

	content := []byte("invoice body")
	resp = uploadFile(t, ts, fmt.Sprintf("/api/folders/%s/files", fld.ID), "inv-01.txt", content)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var file folder.File
	decodeBody(t, resp, &file)
	assert.Equal(t, "inv-01.txt", file.Name)

	// Folder with files cannot be deleted
	resp = doJSON(t, ts, http.MethodDelete, "/api/folders/"+fld.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Download round-trips the bytes
	resp = doJSON(t, ts, http.MethodGet, "/api/files/"+file.ID+"/download", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, content, got)

	resp = doJSON(t, ts, http.MethodDelete, "/api/files/"+file.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, ts, http.MethodDelete, "/api/folders/"+fld.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestInspectEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := uploadFile(t, ts, "/api/files/inspect", "data.csv", []byte("name,count\nalpha,1\nbeta,2\n"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info fileproc.Info
	decodeBody(t, resp, &info)
	assert.Equal(t, fileproc.KindCSV, info.Kind)
	assert.Equal(t, []string{"name", "count"}, info.Columns)
	assert.Equal(t, 2, info.RowCount)
}
