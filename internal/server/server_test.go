package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"quill/internal/config"
	"quill/internal/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*Server
	app   *fiber.App
	mr    *miniredis.Miniredis
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:                   "test",
		Port:                  "0",
		DBDriver:              "sqlite",
		JWTSecret:             "test-secret-that-is-long-enough-0123456789",
		JWTExpiresIn:          "1h",
		JWTIssuer:             "quill-api",
		JWTAudience:           "quill-client",
		BcryptCost:            4,
		AllowedOrigins:        "http://localhost:5173",
		UploadDir:             t.TempDir(),
		UploadMaxSizeMB:       1,
		ThumbnailMaxDimension: 64,
		PublicBaseURL:         "http://blog.test",
	}
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s, err := NewServerWithDeps(testConfig(t), db, rdb)
	require.NoError(t, err)
	return &testServer{Server: s, app: s.App(), mr: mr}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return ts.send(t, req, token)
}

func (ts *testServer) send(t *testing.T, req *http.Request, token string) (*http.Response, map[string]any) {
	t.Helper()
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func (ts *testServer) signup(t *testing.T) (token string, id float64) {
	t.Helper()
	resp, body := ts.do(t, fiber.MethodPost, "/api/v1/auth/signup", fiber.Map{
		"username": gofakeit.LetterN(12),
		"email":    strings.ToLower(gofakeit.LetterN(10)) + "@example.com",
		"password": "password123",
	}, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	user := body["user"].(map[string]any)
	return user["token"].(string), user["id"].(float64)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="thumbnail"; filename="cover.png"`)
		h.Set("Content-Type", "image/png")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return req
}

func (ts *testServer) addBlog(t *testing.T, token, title string) map[string]any {
	t.Helper()
	req := multipartRequest(t, fiber.MethodPost, "/api/v1/blogs/add-blog", map[string]string{
		"title":   title,
		"content": "Some <b>content</b>",
	}, pngBytes(t, 128, 32))
	resp, body := ts.send(t, req, token)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	return body["blog_post"].(map[string]any)
}

func TestHealth(t *testing.T) {
	ts := setupTestServer(t)

	resp, body := ts.do(t, fiber.MethodGet, "/health/live", nil, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "up", body["status"])

	resp, body = ts.do(t, fiber.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "healthy", checks["redis"])

	ts.mr.Close()
	resp, _ = ts.do(t, fiber.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	ts.do(t, fiber.MethodGet, "/health/live", nil, "")

	resp, err := ts.app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "http_requests_total")
}

func TestUnknownRoute(t *testing.T) {
	ts := setupTestServer(t)
	resp, body := ts.do(t, fiber.MethodGet, "/api/v1/nope", nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestAuthFlow(t *testing.T) {
	ts := setupTestServer(t)

	resp, body := ts.do(t, fiber.MethodPost, "/api/v1/auth/signup", fiber.Map{
		"username": "alice", "email": "alice@example.com", "password": "password123", "bio": "hello",
	}, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "User registered successfully", body["message"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "hello", user["bio"])
	assert.NotContains(t, user, "password")
	token := user["token"].(string)

	resp, body = ts.do(t, fiber.MethodPost, "/api/v1/auth/signup", fiber.Map{
		"username": "alice", "email": "other@example.com", "password": "password123",
	}, "")
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Username already exists.", body["error"])

	resp, wrong := ts.do(t, fiber.MethodPost, "/api/v1/auth/login", fiber.Map{"username": "alice", "password": "nope12345"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp, unknown := ts.do(t, fiber.MethodPost, "/api/v1/auth/login", fiber.Map{"username": "bob", "password": "password123"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, wrong["error"], unknown["error"])

	resp, body = ts.do(t, fiber.MethodPost, "/api/v1/auth/login", fiber.Map{"username": "alice", "password": "password123"}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["user"].(map[string]any)["token"])

	resp, body = ts.do(t, fiber.MethodGet, "/api/v1/auth/me", nil, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice@example.com", body["user"].(map[string]any)["email"])

	resp, _ = ts.do(t, fiber.MethodGet, "/api/v1/auth/me", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp, _ = ts.do(t, fiber.MethodGet, "/api/v1/auth/me", nil, "not.a.token")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.do(t, fiber.MethodPost, "/api/v1/auth/logout", nil, token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, body = ts.do(t, fiber.MethodGet, "/api/v1/auth/me", nil, token)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "INVALID_CREDENTIAL", body["code"])
}

func TestBlogLifecycle(t *testing.T) {
	ts := setupTestServer(t)
	alice, _ := ts.signup(t)
	bob, _ := ts.signup(t)

	post := ts.addBlog(t, alice, "Hello, World!")
	assert.Equal(t, "hello-world", post["slug"])
	thumb := post["thumbnail_url"].(string)
	assert.True(t, strings.HasPrefix(thumb, "http://blog.test/uploads/thumbnails/cover-"), thumb)
	id := int(post["id"].(float64))
	blogPath := func(op string) string { return "/api/v1/blogs/" + op + "/" + itoa(id) }

	resp, _ := ts.send(t, httptest.NewRequest(fiber.MethodGet, strings.TrimPrefix(thumb, "http://blog.test"), nil), "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	t.Run("thumbnail is required", func(t *testing.T) {
		req := multipartRequest(t, fiber.MethodPost, "/api/v1/blogs/add-blog", map[string]string{"title": "x", "content": "y"}, nil)
		resp, body := ts.send(t, req, alice)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Thumbnail image is required.", body["error"])
	})

	t.Run("list requires auth", func(t *testing.T) {
		resp, _ := ts.do(t, fiber.MethodGet, "/api/v1/blogs/get-all-blogs", nil, "")
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	resp, body := ts.do(t, fiber.MethodPut, blogPath("update-blog"), fiber.Map{"title": "Brand New"}, bob)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", body["code"])

	resp, body = ts.do(t, fiber.MethodPut, blogPath("update-blog"), fiber.Map{"title": "Brand New"}, alice)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "brand-new", body["blog_post"].(map[string]any)["slug"])

	resp, body = ts.do(t, fiber.MethodPut, blogPath("update-blog"), fiber.Map{}, alice)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No fields to update.", body["error"])

	resp, body = ts.do(t, fiber.MethodGet, blogPath("get-blog"), nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Brand New", body["blog_post"].(map[string]any)["title"])

	resp, _ = ts.do(t, fiber.MethodDelete, blogPath("delete-blog"), nil, bob)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = ts.do(t, fiber.MethodDelete, blogPath("delete-blog"), nil, alice)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = ts.do(t, fiber.MethodGet, "/api/v1/blogs/get-all-blogs", nil, alice)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, body["blog_posts"])

	resp, _ = ts.do(t, fiber.MethodGet, blogPath("get-blog"), nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body = ts.do(t, fiber.MethodGet, "/api/v1/blogs/get-blog/abc", nil, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid blog ID", body["error"])
}

func TestCommentsAndLikes(t *testing.T) {
	ts := setupTestServer(t)
	alice, _ := ts.signup(t)
	bob, bobID := ts.signup(t)
	post := ts.addBlog(t, alice, "Discuss")
	postID := post["id"].(float64)
	pid := itoa(int(postID))

	resp, body := ts.do(t, fiber.MethodPost, "/api/v1/comments/add-comment", fiber.Map{"post_id": postID, "comment": "first!"}, bob)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	commentID := itoa(int(body["comment"].(map[string]any)["id"].(float64)))

	resp, _ = ts.do(t, fiber.MethodPost, "/api/v1/comments/add-comment", fiber.Map{"post_id": 9999, "comment": "x"}, bob)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body = ts.do(t, fiber.MethodPut, "/api/v1/comments/update-comment/"+commentID, fiber.Map{"comment": "mine now"}, alice)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "does not belong to the user")

	resp, body = ts.do(t, fiber.MethodPut, "/api/v1/comments/update-comment/"+commentID, fiber.Map{"comment": "edited"}, bob)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "edited", body["comment"].(map[string]any)["comment"])

	resp, body = ts.do(t, fiber.MethodGet, "/api/v1/comments/get-comments/"+pid, nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	comments := body["comments"].([]any)
	require.Len(t, comments, 1)
	assert.Contains(t, comments[0].(map[string]any), "username")

	resp, _ = ts.do(t, fiber.MethodDelete, "/api/v1/comments/delete-comment/"+commentID, nil, bob)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = ts.do(t, fiber.MethodPost, "/api/v1/likes/like", fiber.Map{"post_id": postID}, bob)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp, body = ts.do(t, fiber.MethodPost, "/api/v1/likes/like", fiber.Map{"post_id": postID}, bob)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Post already liked by this user.", body["error"])

	_, body = ts.do(t, fiber.MethodGet, "/api/v1/likes/is-liked/"+pid, nil, bob)
	assert.Equal(t, true, body["liked"])
	_, body = ts.do(t, fiber.MethodGet, "/api/v1/likes/users/"+pid, nil, "")
	users := body["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, bobID, users[0].(map[string]any)["id"])

	resp, body = ts.do(t, fiber.MethodDelete, "/api/v1/likes/unlike/"+pid, nil, bob)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["deleted"])
	resp, _ = ts.do(t, fiber.MethodDelete, "/api/v1/likes/unlike/"+pid, nil, bob)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	_, body = ts.do(t, fiber.MethodGet, "/api/v1/likes/count/"+pid, nil, "")
	assert.Equal(t, float64(0), body["likes_count"])
}

func TestTagsAndPostTags(t *testing.T) {
	ts := setupTestServer(t)
	alice, _ := ts.signup(t)
	post := ts.addBlog(t, alice, "Tagged")
	pid := itoa(int(post["id"].(float64)))

	resp, body := ts.do(t, fiber.MethodPost, "/api/v1/tags/create-tag", fiber.Map{"name": "Tech"}, alice)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	created := body["created"].([]any)
	require.Len(t, created, 1)
	tagID := created[0].(map[string]any)["id"].(float64)
	tid := itoa(int(tagID))

	resp, body = ts.do(t, fiber.MethodPost, "/api/v1/tags/create-tag", fiber.Map{"name": "Tech"}, alice)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, body["created"])
	assert.Equal(t, []any{"Tech"}, body["existing"])

	resp, body = ts.do(t, fiber.MethodPost, "/api/v1/tags/create-tag", fiber.Map{"names": []string{"Go", "Tech"}}, alice)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Len(t, body["created"], 1)
	assert.Equal(t, []any{"Tech"}, body["existing"])

	resp, _ = ts.do(t, fiber.MethodPut, "/api/v1/tags/update-tag/"+tid, fiber.Map{"name": "Go"}, alice)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = ts.do(t, fiber.MethodPost, "/api/v1/post-tags/add-post-tag", fiber.Map{"post_id": post["id"], "tag_id": tagID}, alice)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp, _ = ts.do(t, fiber.MethodPost, "/api/v1/post-tags/add-post-tag", fiber.Map{"post_id": post["id"], "tag_id": tagID}, alice)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	resp, body = ts.do(t, fiber.MethodPost, "/api/v1/post-tags/add-post-tag", fiber.Map{"post_id": 9999, "tag_id": tagID}, alice)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Post or Tag not found.", body["error"])

	_, body = ts.do(t, fiber.MethodGet, "/api/v1/post-tags/get-all-tags-for-post/"+pid, nil, "")
	assert.Len(t, body["tags"], 1)
	_, body = ts.do(t, fiber.MethodGet, "/api/v1/post-tags/get-posts-by-tag/"+tid, nil, "")
	assert.Len(t, body["posts"], 1)

	resp, _ = ts.do(t, fiber.MethodDelete, "/api/v1/post-tags/remove-post-tag/"+pid+"/"+tid, nil, alice)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = ts.do(t, fiber.MethodDelete, "/api/v1/post-tags/remove-post-tag/"+pid+"/"+tid, nil, alice)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body = ts.do(t, fiber.MethodGet, "/api/v1/tags/get-tags/"+tid, nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Tech", body["tag"].(map[string]any)["name"])

	resp, body = ts.do(t, fiber.MethodDelete, "/api/v1/tags/delete-tag/"+tid, nil, alice)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, tagID, body["tag_id"])

	resp, _ = ts.do(t, fiber.MethodGet, "/api/v1/tags/get-tags/"+tid, nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	_, body = ts.do(t, fiber.MethodGet, "/api/v1/tags/get-all-tags", nil, "")
	tags := body["tags"].([]any)
	require.Len(t, tags, 1)
	assert.Equal(t, "Go", tags[0].(map[string]any)["name"])
}
