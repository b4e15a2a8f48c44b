package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/shotbox/shotbox/internal/config"
	"github.com/shotbox/shotbox/internal/database"
	"github.com/shotbox/shotbox/internal/derivative"
	"github.com/shotbox/shotbox/internal/ingest"
	"github.com/shotbox/shotbox/internal/model"
	"github.com/shotbox/shotbox/internal/moderation"
	"github.com/shotbox/shotbox/internal/router"
	"github.com/shotbox/shotbox/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	ts *httptest.Server
	db *database.SQLiteDB
}

// newTestApp creates a test HTTP server backed by in-memory SQLite and a
// temporary uploads directory.
func newTestApp(t *testing.T) *testApp {
	return newTestAppWith(t, func(*config.Config) {})
}

func newTestAppWith(t *testing.T, tweak func(*config.Config)) *testApp {
	t.Helper()

	db, err := database.NewSQLiteDB("file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := storage.NewFileSystem(t.TempDir())
	cfg := &config.Config{
		BaseURL:        "http://localhost:8080",
		MinUploadBytes: 1024,
		MaxUploadBytes: 20 << 20,
		FullLadder:     true,
		PageSize:       10,
	}
	tweak(cfg)

	pipe := derivative.NewPipeline(store, cfg.FullLadder)
	detector := ingest.NewDetector(db, cfg.DuplicateWindow)
	ing := ingest.NewService(db, store, pipe, detector, cfg.MinUploadBytes)
	mod := moderation.NewService(db, store)

	srv := router.New(db, ing, mod, cfg)
	ts := httptest.NewServer(srv.Router)
	t.Cleanup(ts.Close)

	return &testApp{ts: ts, db: db}
}

func (a *testApp) newUser(t *testing.T, username string, isMod bool) *model.User {
	t.Helper()
	now := time.Now().UTC()
	u := &model.User{Username: username, IsMod: isMod, CanUpload: true, Created: now, Updated: now}
	require.NoError(t, a.db.CreateUser(u))
	return u
}

// asUser creates a request carrying the fronting layer's identity header.
func asUser(t *testing.T, user *model.User, method, url string, body io.Reader) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if user != nil {
		req.Header.Set("X-User-ID", strconv.FormatInt(user.ID, 10))
	}
	return req
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

// multipartShot builds a multipart body with an image file and caption.
func multipartShot(t *testing.T, caption string, imageData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("image", "shot.jpg")
	require.NoError(t, err)
	_, err = fw.Write(imageData)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("text", caption))
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

type envelope struct {
	Success bool            `json:"success"`
	Errors  []interface{}   `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target))
}

func submitShot(t *testing.T, app *testApp, user *model.User, caption string, imageData []byte) *http.Response {
	t.Helper()
	body, contentType := multipartShot(t, caption, imageData)
	req := asUser(t, user, http.MethodPost, app.ts.URL+"/api/shots", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestSubmitShot(t *testing.T) {
	app := newTestApp(t)
	user := app.newUser(t, "alice", false)

	resp := submitShot(t, app, user, "Hello さくら", testJPEG(t, 1920, 1080))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env envelope
	decodeResponse(t, resp, &env)
	require.True(t, env.Success)

	var shot struct {
		Hash      string   `json:"hash"`
		Text      string   `json:"text"`
		Romanized string   `json:"romanized"`
		Images    []string `json:"images"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &shot))
	assert.Len(t, shot.Hash, 32)
	assert.Equal(t, "Hello さくら", shot.Text)
	assert.Equal(t, "hello sakura", shot.Romanized)
	require.Len(t, shot.Images, 4)
	assert.Contains(t, shot.Images[0], "/uploads/"+shot.Hash[len(shot.Hash)-2:]+"/"+shot.Hash+".720p.jpg")
}

func TestSubmitShot_RequiresAuth(t *testing.T) {
	app := newTestApp(t)

	resp := submitShot(t, app, nil, "caption text", testJPEG(t, 1920, 1080))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSubmitShot_UploadFlag(t *testing.T) {
	app := newTestApp(t)
	user := app.newUser(t, "nolift", false)
	user.CanUpload = false
	require.NoError(t, app.db.UpdateUser(user))

	resp := submitShot(t, app, user, "caption text", testJPEG(t, 1920, 1080))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSubmitShot_RequestBodyCap(t *testing.T) {
	app := newTestAppWith(t, func(cfg *config.Config) {
		cfg.MaxUploadBytes = 8 << 10
	})
	user := app.newUser(t, "alice", false)

	// Any admissible JPEG is far past an 8 KiB cap.
	resp := submitShot(t, app, user, "caption text", testJPEG(t, 1280, 720))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestSubmitShot_BadDimensions(t *testing.T) {
	app := newTestApp(t)
	user := app.newUser(t, "alice", false)

	resp := submitShot(t, app, user, "caption text", testJPEG(t, 1000, 600))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSubmitShot_Duplicate(t *testing.T) {
	app := newTestApp(t)
	user := app.newUser(t, "alice", false)

	resp := submitShot(t, app, user, "aru hi no koto", testJPEG(t, 1920, 1080))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = submitShot(t, app, user, "aru hi no koto", testJPEG(t, 1920, 1080))
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var env struct {
		Success bool `json:"success"`
		Result  struct {
			Duplicates []struct {
				Hash string `json:"hash"`
			} `json:"duplicates"`
		} `json:"result"`
	}
	decodeResponse(t, resp, &env)
	assert.False(t, env.Success)
	assert.Len(t, env.Result.Duplicates, 1)
}

func TestListRecentAndGet(t *testing.T) {
	app := newTestApp(t)
	user := app.newUser(t, "alice", false)

	for i := 0; i < 3; i++ {
		resp := submitShot(t, app, user, fmt.Sprintf("caption number %d", i), testJPEG(t, 1920, 1080))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	resp, err := http.Get(app.ts.URL + "/api/shots")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env struct {
		Success bool `json:"success"`
		Result  struct {
			Shots []struct {
				Hash string `json:"hash"`
			} `json:"shots"`
		} `json:"result"`
		ResultInfo struct {
			TotalCount int `json:"total_count"`
		} `json:"result_info"`
	}
	decodeResponse(t, resp, &env)
	require.True(t, env.Success)
	assert.Equal(t, 3, env.ResultInfo.TotalCount)
	require.Len(t, env.Result.Shots, 3)

	// Individual fetch by hash.
	resp, err = http.Get(app.ts.URL + "/api/shots/" + env.Result.Shots[0].Hash)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSearch(t *testing.T) {
	app := newTestApp(t)
	user := app.newUser(t, "alice", false)

	resp := submitShot(t, app, user, "こんにちは", testJPEG(t, 1920, 1080))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Kana query and romaji query both hit the normalized key.
	for _, q := range []string{"こんにちは", "konnichiha"} {
		resp, err := http.Get(app.ts.URL + "/api/search?q=" + q)
		require.NoError(t, err)
		var env struct {
			ResultInfo struct {
				TotalCount int `json:"total_count"`
			} `json:"result_info"`
		}
		decodeResponse(t, resp, &env)
		assert.Equal(t, 1, env.ResultInfo.TotalCount, "query %q", q)
	}
}

func TestToggleBookmarkEndpoint(t *testing.T) {
	app := newTestApp(t)
	owner := app.newUser(t, "owner", false)
	reader := app.newUser(t, "reader", false)

	resp := submitShot(t, app, owner, "caption text", testJPEG(t, 1920, 1080))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var env envelope
	decodeResponse(t, resp, &env)
	var shot struct {
		Hash string `json:"hash"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &shot))

	toggleURL := app.ts.URL + "/api/shots/" + shot.Hash + "/bookmark"

	req := asUser(t, reader, http.MethodPost, toggleURL, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var toggleEnv struct {
		Result struct {
			Present bool `json:"present"`
			Count   int  `json:"count"`
		} `json:"result"`
	}
	decodeResponse(t, resp, &toggleEnv)
	assert.True(t, toggleEnv.Result.Present)
	assert.Equal(t, 1, toggleEnv.Result.Count)

	// Second toggle returns to the original state.
	req = asUser(t, reader, http.MethodPost, toggleURL, nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	decodeResponse(t, resp, &toggleEnv)
	assert.False(t, toggleEnv.Result.Present)
	assert.Equal(t, 0, toggleEnv.Result.Count)
}

func TestDeleteShotEndpoint(t *testing.T) {
	app := newTestApp(t)
	owner := app.newUser(t, "owner", false)
	stranger := app.newUser(t, "stranger", false)
	mod := app.newUser(t, "mod", true)

	resp := submitShot(t, app, owner, "caption text", testJPEG(t, 1920, 1080))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var env envelope
	decodeResponse(t, resp, &env)
	var shot struct {
		Hash string `json:"hash"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &shot))

	deleteURL := app.ts.URL + "/api/shots/" + shot.Hash

	// A stranger cannot delete.
	req := asUser(t, stranger, http.MethodDelete, deleteURL, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// A moderator can.
	req = asUser(t, mod, http.MethodDelete, deleteURL, nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(deleteURL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFlaggedListing_ModOnly(t *testing.T) {
	app := newTestApp(t)
	user := app.newUser(t, "alice", false)
	mod := app.newUser(t, "mod", true)

	req := asUser(t, user, http.MethodGet, app.ts.URL+"/api/shots/flagged", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req = asUser(t, mod, http.MethodGet, app.ts.URL+"/api/shots/flagged", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
