package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playrise/questengine/api/rest"
	"github.com/playrise/questengine/config"
	"github.com/playrise/questengine/game/quest"
	"github.com/playrise/questengine/game/wallet"
	mw "github.com/playrise/questengine/middleware"
	"github.com/playrise/questengine/model"
	"github.com/playrise/questengine/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func postJSON(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func authedJSON(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		data, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func questTemplates() []*quest.Template {
	tpls := []*quest.Template{{
		TemplateID: "coin-bonus", QuestType: "coin-bonus", Title: "Coin Bonus",
		RewardType: model.RewardTypeCoins, RewardSpec: "500", ProgressTarget: 1,
		CooldownMin: 60, RarityWeight: 1,
	}}
	for _, qt := range []string{"login", "spend", "invite", "trade", "share"} {
		tpls = append(tpls, &quest.Template{
			TemplateID: qt, QuestType: qt, Title: qt,
			RewardType: model.RewardTypeCoins, RewardSpec: "100", ProgressTarget: 3,
			RarityWeight: 1,
		})
	}
	return tpls
}

func newQuestSetup(t *testing.T) (r *gin.Engine, db *gorm.DB, userID int64, token string) {
	t.Helper()
	db = testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTLH: 72 * time.Hour}
	logger := zap.NewNop()

	catalog, err := quest.NewCatalog(questTemplates())
	require.NoError(t, err)
	walletSvc := wallet.NewService(db, logger)
	questSvc := quest.NewService(db, catalog, walletSvc, nil, nil, nil, logger)

	authH := rest.NewAuthHandler(db, c, sec)
	questH := rest.NewQuestHandler(questSvc, logger)
	walletH := rest.NewWalletHandler(walletSvc)

	r = gin.New()
	r.POST("/api/auth/login", authH.Login)
	authGroup := r.Group("/api", mw.Auth(sec, c))
	authGroup.GET("/quests", questH.List)
	authGroup.POST("/quests", questH.Create)
	authGroup.GET("/quests/count", questH.Count)
	authGroup.POST("/quests/refill", questH.Refill)
	authGroup.POST("/quests/:id/progress", questH.UpdateProgress)
	authGroup.POST("/quests/:id/complete", questH.Complete)
	authGroup.POST("/quests/:id/replace", questH.Replace)
	authGroup.DELETE("/quests/:id", questH.Delete)
	authGroup.GET("/wallet", walletH.Balances)

	w := postJSON(r, "/api/auth/login", map[string]string{"username": "questuser", "password": "pass1234"})
	require.Equal(t, http.StatusOK, w.Code)
	var lr map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lr))
	token = lr["token"].(string)
	userID = int64(lr["user_id"].(float64))
	return r, db, userID, token
}

func TestQuestRoutes_RequireAuth(t *testing.T) {
	r, _, _, _ := newQuestSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/api/quests", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQuestRefill_AndList(t *testing.T) {
	r, _, _, token := newQuestSetup(t)

	w := authedJSON(r, http.MethodPost, "/api/quests/refill", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = authedJSON(r, http.MethodGet, "/api/quests", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Quests []quest.Instance `json:"quests"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Quests, quest.PoolSize)

	w = authedJSON(r, http.MethodGet, "/api/quests/count", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var count struct {
		Count int `json:"count"`
		Max   int `json:"max"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &count))
	assert.Equal(t, quest.PoolSize, count.Count)
	assert.Equal(t, quest.PoolSize, count.Max)
}

func TestQuestCreate_PoolFullCode(t *testing.T) {
	r, _, _, token := newQuestSetup(t)

	require.Equal(t, http.StatusOK, authedJSON(r, http.MethodPost, "/api/quests/refill", token, nil).Code)

	w := authedJSON(r, http.MethodPost, "/api/quests", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pool_full", resp["error"])
}

func TestQuestProgressAndComplete(t *testing.T) {
	r, db, userID, token := newQuestSetup(t)

	w := authedJSON(r, http.MethodPost, "/api/quests/refill", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var refill struct {
		Created []quest.Instance `json:"created"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refill))
	require.NotEmpty(t, refill.Created)
	target := refill.Created[0]

	w = authedJSON(r, http.MethodPost, "/api/quests/"+target.ID+"/progress", token,
		map[string]int{"progress": target.ProgressTarget})
	require.Equal(t, http.StatusOK, w.Code)
	var pr struct {
		Quest quest.Instance `json:"quest"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pr))
	assert.True(t, pr.Quest.IsReadyToClaim)
	assert.Equal(t, model.QuestStatusActive, pr.Quest.Status)

	w = authedJSON(r, http.MethodPost, "/api/quests/"+target.ID+"/complete", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cr quest.CompleteResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cr))
	assert.Equal(t, model.QuestStatusCompleted, cr.Settled.Status)

	// Completing again conflicts.
	w = authedJSON(r, http.MethodPost, "/api/quests/"+target.ID+"/complete", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// The reward landed in the wallet.
	w = authedJSON(r, http.MethodGet, "/api/wallet", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var balances map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &balances))
	var user model.User
	require.NoError(t, db.First(&user, "id = ?", userID).Error)
	assert.Equal(t, user.Coins, balances["coins"])
	assert.Positive(t, balances["coins"])
}

func TestQuestProgress_InvalidBody(t *testing.T) {
	r, _, _, token := newQuestSetup(t)

	w := authedJSON(r, http.MethodPost, "/api/quests/refill", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var refill struct {
		Created []quest.Instance `json:"created"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refill))
	require.NotEmpty(t, refill.Created)
	id := refill.Created[0].ID

	w = authedJSON(r, http.MethodPost, "/api/quests/"+id+"/progress", token,
		map[string]int{"progress": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = authedJSON(r, http.MethodPost, "/api/quests/"+id+"/progress", token,
		map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuestReplaceAndDelete(t *testing.T) {
	r, _, _, token := newQuestSetup(t)

	w := authedJSON(r, http.MethodPost, "/api/quests/refill", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var refill struct {
		Created []quest.Instance `json:"created"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refill))
	require.Len(t, refill.Created, quest.PoolSize)

	w = authedJSON(r, http.MethodPost, "/api/quests/"+refill.Created[0].ID+"/replace", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = authedJSON(r, http.MethodDelete, "/api/quests/"+refill.Created[1].ID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = authedJSON(r, http.MethodDelete, "/api/quests/"+refill.Created[1].ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = authedJSON(r, http.MethodPost, "/api/quests/does-not-exist/complete", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp["error"])
}
