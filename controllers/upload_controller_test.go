package controllers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/killursxlf/livejournal/models"
)

func doUpload(t *testing.T, r *gin.Engine, token, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func cleanupUploads(t *testing.T, db *gorm.DB) {
	t.Helper()
	t.Cleanup(func() {
		var files []models.UploadedFile
		if db.Find(&files).Error == nil {
			for _, f := range files {
				_ = os.Remove(f.FilePath)
			}
		}
		_ = os.RemoveAll("static")
	})
}

func TestUploadStoresFileAndRow(t *testing.T) {
	db := openTestDB(t)
	r := newTestRouter(db)
	cleanupUploads(t, db)
	user := createUser(t, db, "uploader")

	w := doUpload(t, r, tokenFor(t, user), "avatar.png", []byte("png-bytes"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		URL string `json:"url"`
	}
	decodeBody(t, w, &resp)
	assert.True(t, strings.HasPrefix(resp.URL, "/static/uploads/"), resp.URL)
	assert.True(t, strings.HasSuffix(resp.URL, "avatar.png"), resp.URL)

	var row models.UploadedFile
	require.NoError(t, db.Where("url = ?", resp.URL).First(&row).Error)
	assert.True(t, row.ExpireAt.After(time.Now()))

	data, err := os.ReadFile(row.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	db := openTestDB(t)
	r := newTestRouter(db)
	cleanupUploads(t, db)
	user := createUser(t, db, "uploader")

	big := bytes.Repeat([]byte("a"), maxUploadSize+1)
	w := doUpload(t, r, tokenFor(t, user), "huge.bin", big)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var rows int64
	require.NoError(t, db.Model(&models.UploadedFile{}).Count(&rows).Error)
	assert.EqualValues(t, 0, rows)
}

func TestUploadValidation(t *testing.T) {
	db := openTestDB(t)
	r := newTestRouter(db)
	cleanupUploads(t, db)
	user := createUser(t, db, "uploader")

	// No Authorization header.
	w := doUpload(t, r, "", "file.txt", []byte("x"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// No file part in the form.
	w = doUpload(t, r, tokenFor(t, user), "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
