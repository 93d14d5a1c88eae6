package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killursxlf/livejournal/models"
)

func TestRegisterAndLogin(t *testing.T) {
	db := openTestDB(t)
	r := newTestRouter(db)

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "newcomer",
		"email":    "newcomer@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var reg struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decodeBody(t, w, &reg)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "newcomer", reg.User.Username)
	// The hash never leaks.
	assert.NotContains(t, w.Body.String(), "password")

	// Username and email are both unique.
	w = doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "newcomer",
		"email":    "other@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "newcomer",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Login by email works too.
	w = doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "newcomer@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "newcomer",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeAndUpdateProfile(t *testing.T) {
	db := openTestDB(t)
	r := newTestRouter(db)
	user := createUser(t, db, "profiled")
	token := tokenFor(t, user)

	w := doJSON(t, r, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.User
	decodeBody(t, w, &me)
	assert.Equal(t, user.ID, me.ID)

	w = doJSON(t, r, http.MethodPut, "/api/me", token, gin.H{
		"about": "gardener and <script>hacker</script>",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	assert.NotContains(t, updated.About, "<script>")
	// Untouched fields keep their values.
	assert.Equal(t, user.Email, updated.Email)
}

func TestGetUserPublicProfile(t *testing.T) {
	db := openTestDB(t)
	r := newTestRouter(db)

	author := createUser(t, db, "famous")
	fan := createUser(t, db, "fan")
	createPost(t, db, author, "entry")
	require.NoError(t, db.Create(&models.Follow{FollowerID: fan.ID, FollowingID: author.ID}).Error)

	var resp struct {
		User           models.User `json:"user"`
		FollowerCount  int64       `json:"followerCount"`
		FollowingCount int64       `json:"followingCount"`
		PostCount      int64       `json:"postCount"`
		IsFollowed     *bool       `json:"isFollowed"`
	}

	w := doJSON(t, r, http.MethodGet, "/api/users/famous", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &resp)
	assert.EqualValues(t, 1, resp.FollowerCount)
	assert.EqualValues(t, 1, resp.PostCount)
	assert.Nil(t, resp.IsFollowed)

	w = doJSON(t, r, http.MethodGet, "/api/users/famous", tokenFor(t, fan), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp.IsFollowed = nil
	decodeBody(t, w, &resp)
	require.NotNil(t, resp.IsFollowed)
	assert.True(t, *resp.IsFollowed)

	w = doJSON(t, r, http.MethodGet, "/api/users/ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
