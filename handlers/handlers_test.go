package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/camden-git/mememanager/config"
	"github.com/camden-git/mememanager/database"
	"github.com/camden-git/mememanager/models"
	"github.com/camden-git/mememanager/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	handler http.Handler
	images  *repository.ImageRepository
	groups  *repository.GroupRepository
}

func testConfig() config.Config {
	return config.Config{
		AllowedOrigins: []string{"*"},
		DefaultPerPage: 20,
		MaxPerPage:     100,
		MaxImageBytes:  models.MaxImageBytes,
		TagSearchMode:  config.TagSearchExact,
	}
}

func newTestServer(t *testing.T, cfg config.Config) *testServer {
	t.Helper()
	db, err := database.InitGormDB(filepath.Join(t.TempDir(), "memes.sqlite"), "silent")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	require.NoError(t, database.AutoMigrateModels(db))

	return &testServer{
		handler: NewRouter(cfg, db),
		images:  repository.NewImageRepository(db),
		groups:  repository.NewGroupRepository(db),
	}
}

func (s *testServer) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func uploadRequest(t *testing.T, filename string, data []byte, metadata string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	if metadata != "" {
		require.NoError(t, mw.WriteField("metadata", metadata))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/images/add", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAddAndFetchImage(t *testing.T) {
	s := newTestServer(t, testConfig())
	_, err := s.groups.Create("cats")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, uploadRequest(t, "tabby.png", []byte("PNGDATA"), `{"img_type":"png","tags":["cat","orange"],"group":"cats"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var msg MessageResponse
	decode(t, rec, &msg)
	assert.NotEmpty(t, msg.Msg)

	rec = s.do(t, http.MethodGet, "/api/images/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list ImageListResponse
	decode(t, rec, &list)
	require.Len(t, list.Data, 1)
	item := list.Data[0]
	assert.Equal(t, "png", item.ImgType)
	assert.Equal(t, []string{"cat", "orange"}, item.Tags)
	require.NotNil(t, item.Group)
	assert.Equal(t, "cats", *item.Group)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, item.CreateAt)
	assert.Equal(t, Pagination{Pages: 1, Page: 1, PerPage: 20, Total: 1}, list.Pagination)

	rec = s.do(t, http.MethodGet, "/api/images/?id="+itoa(item.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "PNGDATA", rec.Body.String())
}

func TestAddImageDefaultsTypeFromFilename(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, uploadRequest(t, "doge.gif", []byte("GIF"), `{"tags":[]}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result, err := s.images.Search(repository.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, result.Images, 1)
	assert.Equal(t, "gif", result.Images[0].ImgType)
	assert.Empty(t, result.Images[0].TagList())
}

func TestAddImageRejections(t *testing.T) {
	cfg := testConfig()
	cfg.MaxImageBytes = 8
	s := newTestServer(t, cfg)

	cases := []struct {
		name     string
		filename string
		data     string
		metadata string
		status   int
	}{
		{"invalid tag", "a.png", "x", `{"img_type":"png","tags":["a,b"]}`, http.StatusBadRequest},
		{"unknown group", "a.png", "x", `{"img_type":"png","tags":[],"group":"nope"}`, http.StatusBadRequest},
		{"bad metadata", "a.png", "x", `{`, http.StatusBadRequest},
		{"no type", "noext", "x", `{"tags":[]}`, http.StatusBadRequest},
		{"too large", "a.png", "123456789", `{"img_type":"png"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, uploadRequest(t, tc.filename, []byte(tc.data), tc.metadata))
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			var e ErrorResponse
			decode(t, rec, &e)
			assert.NotEmpty(t, e.Error)
		})
	}

	result, err := s.images.Search(repository.SearchFilter{})
	require.NoError(t, err)
	assert.Zero(t, result.PageInfo.Total)
}

func TestGetMissingImage(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(t, http.MethodGet, "/api/images/?id=42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var e ErrorResponse
	decode(t, rec, &e)
	assert.NotEmpty(t, e.Error)

	rec = s.do(t, http.MethodGet, "/api/images/?id=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListImagesFiltersAndPagination(t *testing.T) {
	s := newTestServer(t, testConfig())
	g, err := s.groups.Create("G")
	require.NoError(t, err)
	_, err = s.images.Create([]byte("a"), "png", []string{"cat"}, &g.ID)
	require.NoError(t, err)
	_, err = s.images.Create([]byte("b"), "png", []string{"dog"}, &g.ID)
	require.NoError(t, err)
	_, err = s.images.Create([]byte("c"), "png", []string{"cat"}, nil)
	require.NoError(t, err)

	var list ImageListResponse

	rec := s.do(t, http.MethodGet, "/api/images/?tag=cat&group=G", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = ImageListResponse{}
	decode(t, rec, &list)
	assert.Equal(t, int64(1), list.Pagination.Total)

	rec = s.do(t, http.MethodGet, "/api/images/?group=Missing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = ImageListResponse{}
	decode(t, rec, &list)
	assert.Empty(t, list.Data)
	assert.Equal(t, int64(0), list.Pagination.Total)

	rec = s.do(t, http.MethodGet, "/api/images/?tag=at&match=substring", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = ImageListResponse{}
	decode(t, rec, &list)
	assert.Equal(t, int64(2), list.Pagination.Total)

	rec = s.do(t, http.MethodGet, "/api/images/?tag=at", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = ImageListResponse{}
	decode(t, rec, &list)
	assert.Equal(t, int64(0), list.Pagination.Total)

	rec = s.do(t, http.MethodGet, "/api/images/?page=2&per_page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = ImageListResponse{}
	decode(t, rec, &list)
	require.Len(t, list.Data, 1)
	assert.Equal(t, []string{"cat"}, list.Data[0].Tags)
	assert.Nil(t, list.Data[0].Group)
	assert.Equal(t, Pagination{Pages: 2, Page: 2, PerPage: 2, Total: 3}, list.Pagination)

	rec = s.do(t, http.MethodGet, "/api/images/?page=9&per_page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = ImageListResponse{}
	decode(t, rec, &list)
	assert.Empty(t, list.Data)
	assert.Equal(t, 2, list.Pagination.Pages)

	rec = s.do(t, http.MethodGet, "/api/images/?per_page=1000", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = ImageListResponse{}
	decode(t, rec, &list)
	assert.Equal(t, 100, list.Pagination.PerPage)

	for _, q := range []string{"page=-1", "per_page=-5", "page=x", "match=fuzzy"} {
		rec = s.do(t, http.MethodGet, "/api/images/?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestDeleteImage(t *testing.T) {
	s := newTestServer(t, testConfig())
	img, err := s.images.Create([]byte("a"), "png", []string{"x"}, nil)
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/images/delete?id="+itoa(img.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/images/delete?id="+itoa(img.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateImageGroup(t *testing.T) {
	s := newTestServer(t, testConfig())
	g, err := s.groups.Create("G")
	require.NoError(t, err)
	img, err := s.images.Create([]byte("a"), "png", []string{"x"}, nil)
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/api/images/update", map[string]interface{}{"id": img.ID, "group": "G"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got, err := s.images.GetByID(img.ID)
	require.NoError(t, err)
	require.NotNil(t, got.GroupID)
	assert.Equal(t, g.ID, *got.GroupID)

	rec = s.do(t, http.MethodPost, "/api/images/update", map[string]interface{}{"id": img.ID, "group": nil})
	require.Equal(t, http.StatusOK, rec.Code)
	got, err = s.images.GetByID(img.ID)
	require.NoError(t, err)
	assert.Nil(t, got.GroupID)

	rec = s.do(t, http.MethodPost, "/api/images/update", map[string]interface{}{"id": img.ID, "group": "Missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/images/update", map[string]interface{}{"id": 999, "group": nil})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTagEndpoints(t *testing.T) {
	s := newTestServer(t, testConfig())
	img, err := s.images.Create([]byte("a"), "png", []string{"a", "b"}, nil)
	require.NoError(t, err)
	target := "/api/tags/?image_id=" + itoa(img.ID)

	var data struct {
		Data []string `json:"data"`
	}

	rec := s.do(t, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &data)
	assert.Equal(t, []string{"a", "b"}, data.Data)

	rec = s.do(t, http.MethodPost, "/api/tags/add", AddTagsRequest{ImageID: img.ID, Tags: []string{"c", "a"}})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, target, nil)
	decode(t, rec, &data)
	assert.Equal(t, []string{"a", "b", "c", "a"}, data.Data)

	rec = s.do(t, http.MethodPost, "/api/tags/delete", DeleteTagRequest{ImageID: img.ID, Tag: "a"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, target, nil)
	decode(t, rec, &data)
	assert.Equal(t, []string{"b", "c", "a"}, data.Data)

	rec = s.do(t, http.MethodPost, "/api/tags/delete", DeleteTagRequest{ImageID: img.ID, Tag: "zzz"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/tags/add", AddTagsRequest{ImageID: img.ID, Tags: []string{"x,y"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/tags/add", AddTagsRequest{ImageID: 999, Tags: []string{"x"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/tags/?image_id=999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGroupEndpoints(t *testing.T) {
	s := newTestServer(t, testConfig())

	for _, name := range []string{"zeta", "alpha"} {
		rec := s.do(t, http.MethodPost, "/api/groups/add", AddGroupRequest{Name: name})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/api/groups/add", AddGroupRequest{Name: "alpha"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/groups/add", AddGroupRequest{Name: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var names struct {
		Data []string `json:"data"`
	}
	rec = s.do(t, http.MethodGet, "/api/groups/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &names)
	assert.Equal(t, []string{"alpha", "zeta"}, names.Data)

	rec = s.do(t, http.MethodPost, "/api/groups/update", map[string]string{"name": "zeta", "new_name": "beta"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/groups/update", map[string]string{"name": "beta", "new_name": "alpha"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/groups/update", map[string]string{"name": "nope", "new_name": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	beta, err := s.groups.GetByName("beta")
	require.NoError(t, err)
	img, err := s.images.Create([]byte("a"), "png", nil, &beta.ID)
	require.NoError(t, err)

	rec = s.do(t, http.MethodPost, "/api/groups/delete", map[string]interface{}{"id": beta.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	_, err = s.images.GetByID(img.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	rec = s.do(t, http.MethodPost, "/api/groups/delete", map[string]string{"name": "beta"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/groups/delete", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/groups/", nil)
	decode(t, rec, &names)
	assert.Equal(t, []string{"alpha"}, names.Data)
}

func TestCORSReflectsOrigin(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/groups/", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:8080", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestFrontendServer(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>memes</h1>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0644))

	cfg := testConfig()
	cfg.FrontendDirectory = dir
	s := newTestServer(t, cfg)

	rec := s.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "memes")

	rec = s.do(t, http.MethodGet, "/app.js", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "console.log"))

	rec = s.do(t, http.MethodGet, "/missing.css", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusForError(t *testing.T) {
	cases := map[error]int{
		repository.ErrNotFound:              http.StatusNotFound,
		repository.ErrDuplicateName:         http.StatusConflict,
		repository.ErrInvalidGroupReference: http.StatusBadRequest,
		repository.ErrTagNotPresent:         http.StatusBadRequest,
		repository.ErrImageTooLarge:         http.StatusRequestEntityTooLarge,
		assert.AnError:                      http.StatusInternalServerError,
	}
	for err, status := range cases {
		assert.Equal(t, status, statusForError(err), err.Error())
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
