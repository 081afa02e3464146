package conversations

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"chatsev-backend/testutils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	testutils.InitTestMain()

	log.SetOutput(io.Discard)

	exitCode := m.Run()

	log.SetOutput(os.Stdout)

	os.Exit(exitCode)
}

const (
	conversationID = "123e4567-e89b-12d3-a456-426614174000"
	userA          = "aaa12345-e89b-12d3-a456-426614174000"
	userB          = "bbb12345-e89b-12d3-a456-426614174000"
)

func jsonRequest(method, url string, body interface{}) *http.Request {
	payload, _ := json.Marshal(body)
	req, _ := http.NewRequest(method, url, bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestGetOrCreateConversation_ReturnsExisting(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE id = \$1(.+)LIMIT \$2`).
		WithArgs(userB, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "message_enable"}).AddRow(userB, true))

	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_blocks"`).
		WithArgs(userA, userB, userB, userA).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	mock.ExpectQuery(`SELECT (.+) FROM "conversations" WHERE participant_a = \$1 AND participant_b = \$2(.+)LIMIT \$3`).
		WithArgs(userA, userB, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "participant_a", "participant_b"}).
			AddRow(conversationID, userA, userB))

	r := testutils.SetupTestRouter()
	r.POST("/conversations", func(c *gin.Context) {
		c.Set("user_id", userA)
		GetOrCreateConversation(c)
	})

	req := jsonRequest(http.MethodPost, "/conversations", gin.H{"otherUserId": userB})
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)

	var respBody map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &respBody)
	assert.Equal(t, conversationID, respBody["id"])
}

func TestGetOrCreateConversation_CreatesOnFirstContact(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE id = \$1(.+)LIMIT \$2`).
		WithArgs(userB, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "message_enable"}).AddRow(userB, true))

	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_blocks"`).
		WithArgs(userA, userB, userB, userA).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	mock.ExpectQuery(`SELECT (.+) FROM "conversations" WHERE participant_a = \$1 AND participant_b = \$2(.+)LIMIT \$3`).
		WithArgs(userA, userB, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "conversations" (.+) ON CONFLICT (.+) DO NOTHING RETURNING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(conversationID))
	mock.ExpectCommit()

	r := testutils.SetupTestRouter()
	r.POST("/conversations", func(c *gin.Context) {
		c.Set("user_id", userA)
		GetOrCreateConversation(c)
	})

	req := jsonRequest(http.MethodPost, "/conversations", gin.H{"otherUserId": userB})
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusCreated, resp.Code)
}

func TestGetOrCreateConversation_CanonicalOrderFromEitherSide(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	// userB initiates, the pair is still stored smaller id first
	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE id = \$1(.+)LIMIT \$2`).
		WithArgs(userA, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "message_enable"}).AddRow(userA, true))

	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_blocks"`).
		WithArgs(userB, userA, userA, userB).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	mock.ExpectQuery(`SELECT (.+) FROM "conversations" WHERE participant_a = \$1 AND participant_b = \$2(.+)LIMIT \$3`).
		WithArgs(userA, userB, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "participant_a", "participant_b"}).
			AddRow(conversationID, userA, userB))

	r := testutils.SetupTestRouter()
	r.POST("/conversations", func(c *gin.Context) {
		c.Set("user_id", userB)
		GetOrCreateConversation(c)
	})

	req := jsonRequest(http.MethodPost, "/conversations", gin.H{"otherUserId": userA})
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestGetOrCreateConversation_LostCreationRace(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE id = \$1(.+)LIMIT \$2`).
		WithArgs(userB, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "message_enable"}).AddRow(userB, true))

	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_blocks"`).
		WithArgs(userA, userB, userB, userA).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	mock.ExpectQuery(`SELECT (.+) FROM "conversations" WHERE participant_a = \$1 AND participant_b = \$2(.+)LIMIT \$3`).
		WithArgs(userA, userB, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	// ON CONFLICT DO NOTHING hit the other side's freshly created row
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "conversations" (.+) ON CONFLICT (.+) DO NOTHING RETURNING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	mock.ExpectQuery(`SELECT (.+) FROM "conversations" WHERE participant_a = \$1 AND participant_b = \$2(.+)LIMIT \$3`).
		WithArgs(userA, userB, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "participant_a", "participant_b"}).
			AddRow(conversationID, userA, userB))

	r := testutils.SetupTestRouter()
	r.POST("/conversations", func(c *gin.Context) {
		c.Set("user_id", userA)
		GetOrCreateConversation(c)
	})

	req := jsonRequest(http.MethodPost, "/conversations", gin.H{"otherUserId": userB})
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)

	var respBody map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &respBody)
	assert.Equal(t, conversationID, respBody["id"])
}

func TestGetOrCreateConversation_Blocked(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE id = \$1(.+)LIMIT \$2`).
		WithArgs(userB, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "message_enable"}).AddRow(userB, true))

	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_blocks"`).
		WithArgs(userA, userB, userB, userA).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	r := testutils.SetupTestRouter()
	r.POST("/conversations", func(c *gin.Context) {
		c.Set("user_id", userA)
		GetOrCreateConversation(c)
	})

	req := jsonRequest(http.MethodPost, "/conversations", gin.H{"otherUserId": userB})
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestGetOrCreateConversation_WithYourself(t *testing.T) {
	r := testutils.SetupTestRouter()
	r.POST("/conversations", func(c *gin.Context) {
		c.Set("user_id", userA)
		GetOrCreateConversation(c)
	})

	req := jsonRequest(http.MethodPost, "/conversations", gin.H{"otherUserId": userA})
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetOrCreateConversation_MessagesDisabled(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE id = \$1(.+)LIMIT \$2`).
		WithArgs(userB, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "message_enable"}).AddRow(userB, false))

	r := testutils.SetupTestRouter()
	r.POST("/conversations", func(c *gin.Context) {
		c.Set("user_id", userA)
		GetOrCreateConversation(c)
	})

	req := jsonRequest(http.MethodPost, "/conversations", gin.H{"otherUserId": userB})
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestListConversations_WithSummary(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE id = \$1(.+)LIMIT \$2`).
		WithArgs(userA, 1).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("USER"))

	mock.ExpectQuery(`SELECT (.+) FROM "conversations" WHERE participant_a = \$1 OR participant_b = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "participant_a", "participant_b", "nickname_for_a", "last_activity_at"}).
			AddRow(conversationID, userA, userB, "Buddy", time.Now()))

	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_blocks"`).
		WithArgs(userA, userB, userB, userA).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	mock.ExpectQuery(`SELECT (.+) FROM "conversation_deletions" WHERE conversation_id = \$1 AND user_id = \$2(.+)LIMIT \$3`).
		WithArgs(conversationID, userA, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE id = \$1(.+)LIMIT \$2`).
		WithArgs(userB, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_name"}).AddRow(userB, "bob"))

	mock.ExpectQuery(`SELECT count\(\*\) FROM "messages" WHERE conversation_id = \$1 AND sender_id = \$2 AND read_at IS NULL`).
		WithArgs(conversationID, userB).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	mock.ExpectQuery(`SELECT (.+) FROM "messages" WHERE conversation_id = \$1 ORDER BY created_at DESC(.+)LIMIT \$2`).
		WithArgs(conversationID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id", "sender_id", "content", "created_at"}).
			AddRow("msg1", conversationID, userB, "see you tomorrow", time.Now()))

	r := testutils.SetupTestRouter()
	r.GET("/conversations", func(c *gin.Context) {
		c.Set("user_id", userA)
		ListConversations(c)
	})

	req, _ := http.NewRequest(http.MethodGet, "/conversations", nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)

	var summaries []map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &summaries)
	assert.Len(t, summaries, 1)
	assert.Equal(t, "Buddy", summaries[0]["nickname"])
	assert.Equal(t, float64(2), summaries[0]["unreadCount"])
	assert.Equal(t, "see you tomorrow", summaries[0]["lastPreview"])
}

func TestListConversations_BlockedPairHidden(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE id = \$1(.+)LIMIT \$2`).
		WithArgs(userA, 1).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("USER"))

	mock.ExpectQuery(`SELECT (.+) FROM "conversations" WHERE participant_a = \$1 OR participant_b = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "participant_a", "participant_b"}).
			AddRow(conversationID, userA, userB))

	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_blocks"`).
		WithArgs(userA, userB, userB, userA).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	r := testutils.SetupTestRouter()
	r.GET("/conversations", func(c *gin.Context) {
		c.Set("user_id", userA)
		ListConversations(c)
	})

	req, _ := http.NewRequest(http.MethodGet, "/conversations", nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)

	var summaries []map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &summaries)
	assert.Len(t, summaries, 0)
}

func TestUpdateSettings_NicknameOnCallersSlot(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "conversations" WHERE id = \$1(.+)LIMIT \$2`).
		WithArgs(conversationID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "participant_a", "participant_b"}).
			AddRow(conversationID, userA, userB))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "conversations" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r := testutils.SetupTestRouter()
	r.PUT("/conversations/:id/settings", func(c *gin.Context) {
		c.Set("user_id", userA)
		UpdateSettings(c)
	})

	req := jsonRequest(http.MethodPut, "/conversations/"+conversationID+"/settings",
		gin.H{"nickname": "Buddy", "theme": "midnight"})
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)

	var respBody map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &respBody)
	assert.Equal(t, "Buddy", respBody["nicknameForA"])
	assert.Equal(t, "", respBody["nicknameForB"])
	assert.Equal(t, "midnight", respBody["theme"])
}

func TestUpdateSettings_NotParticipant(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "conversations" WHERE id = \$1(.+)LIMIT \$2`).
		WithArgs(conversationID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "participant_a", "participant_b"}).
			AddRow(conversationID, userA, userB))

	r := testutils.SetupTestRouter()
	r.PUT("/conversations/:id/settings", func(c *gin.Context) {
		c.Set("user_id", "ccc12345-e89b-12d3-a456-426614174000")
		UpdateSettings(c)
	})

	req := jsonRequest(http.MethodPut, "/conversations/"+conversationID+"/settings",
		gin.H{"theme": "midnight"})
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestDeleteConversation_ParticipantSoftDeletes(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "conversations" WHERE id = \$1(.+)LIMIT \$2`).
		WithArgs(conversationID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "participant_a", "participant_b"}).
			AddRow(conversationID, userA, userB))

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE id = \$1(.+)LIMIT \$2`).
		WithArgs(userA, 1).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("USER"))

	mock.ExpectQuery(`SELECT (.+) FROM "messages" WHERE conversation_id = \$1 AND is_deleted = \$2`).
		WithArgs(conversationID, false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id", "sender_id", "content", "created_at"}).
			AddRow("msg1", conversationID, userA, "hello", time.Now()))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "messages" SET "content"=\$1,"deleted_at"=\$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "conversation_deletions" (.+) ON CONFLICT (.+) DO UPDATE SET (.+) RETURNING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("marker1"))
	mock.ExpectCommit()

	r := testutils.SetupTestRouter()
	r.DELETE("/conversations/:id", func(c *gin.Context) {
		c.Set("user_id", userA)
		DeleteConversation(c)
	})

	req, _ := http.NewRequest(http.MethodDelete, "/conversations/"+conversationID, nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)

	var respBody map[string]string
	json.Unmarshal(resp.Body.Bytes(), &respBody)
	assert.Equal(t, "Conversation deleted", respBody["message"])
}

func TestDeleteConversation_InspectorPurges(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	inspectorID := "ddd12345-e89b-12d3-a456-426614174000"

	mock.ExpectQuery(`SELECT (.+) FROM "conversations" WHERE id = \$1(.+)LIMIT \$2`).
		WithArgs(conversationID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "participant_a", "participant_b"}).
			AddRow(conversationID, userA, userB))

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE id = \$1(.+)LIMIT \$2`).
		WithArgs(inspectorID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("INSPECTOR"))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM message_reactions WHERE message_id IN`).
		WithArgs(conversationID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM "messages" WHERE conversation_id = \$1`).
		WithArgs(conversationID).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(`DELETE FROM "conversation_deletions" WHERE conversation_id = \$1`).
		WithArgs(conversationID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "conversations" WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r := testutils.SetupTestRouter()
	r.DELETE("/conversations/:id", func(c *gin.Context) {
		c.Set("user_id", inspectorID)
		DeleteConversation(c)
	})

	req, _ := http.NewRequest(http.MethodDelete, "/conversations/"+conversationID, nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)

	var respBody map[string]string
	json.Unmarshal(resp.Body.Bytes(), &respBody)
	assert.Equal(t, "Conversation permanently deleted", respBody["message"])
}
