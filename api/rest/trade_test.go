package rest_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/lonely-fr/perofish-server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrade_FullRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)
	ctx := context.Background()

	carp := env.seedFish(t, "Carp", "common", 10, false)
	bass := env.seedFish(t, "Bass", "rare", 20, false)
	_, err := env.eco.EnsurePlayer(ctx, "alice")
	require.NoError(t, err)
	aliceItem, err := env.eco.Acquire(ctx, "alice", carp, nil)
	require.NoError(t, err)
	_, err = env.eco.EnsurePlayer(ctx, "bob")
	require.NoError(t, err)
	_, err = env.eco.Acquire(ctx, "bob", bass, nil)
	require.NoError(t, err)

	w := env.request(t, http.MethodPost, "/api/trades", token, map[string]interface{}{
		"username":         "alice",
		"offered_item_id":  aliceItem.ID,
		"requested_def_id": bass.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tradeID := int64(decodeJSON(t, w)["id"].(float64))

	w = env.request(t, http.MethodGet, "/api/trades", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeJSON(t, w)["count"])

	w = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/trades/%d/accept", tradeID), token,
		map[string]string{"username": "bob"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.TradeCompleted, decodeJSON(t, w)["status"])

	// The carp now belongs to bob.
	var item model.InventoryItem
	require.NoError(t, env.db.First(&item, aliceItem.ID).Error)
	assert.Equal(t, "bob", item.Username)
}

func TestTrade_AcceptWithoutItem(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)
	ctx := context.Background()

	carp := env.seedFish(t, "Carp", "common", 10, false)
	_, err := env.eco.EnsurePlayer(ctx, "alice")
	require.NoError(t, err)
	item, err := env.eco.Acquire(ctx, "alice", carp, nil)
	require.NoError(t, err)

	w := env.request(t, http.MethodPost, "/api/trades", token, map[string]interface{}{
		"username":         "alice",
		"offered_item_id":  item.ID,
		"requested_def_id": carp.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	tradeID := int64(decodeJSON(t, w)["id"].(float64))

	w = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/trades/%d/accept", tradeID), token,
		map[string]string{"username": "bob"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTrade_CreateInvalid(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	// Both sides empty.
	w := env.request(t, http.MethodPost, "/api/trades", token,
		map[string]interface{}{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrade_Cancel(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)
	ctx := context.Background()

	carp := env.seedFish(t, "Carp", "common", 10, false)
	_, err := env.eco.EnsurePlayer(ctx, "alice")
	require.NoError(t, err)
	item, err := env.eco.Acquire(ctx, "alice", carp, nil)
	require.NoError(t, err)

	w := env.request(t, http.MethodPost, "/api/trades", token, map[string]interface{}{
		"username":         "alice",
		"offered_item_id":  item.ID,
		"requested_amount": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	tradeID := int64(decodeJSON(t, w)["id"].(float64))

	// Non-creator cancel is rejected.
	w = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/trades/%d/cancel", tradeID), token,
		map[string]string{"username": "bob"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/trades/%d/cancel", tradeID), token,
		map[string]string{"username": "alice"})
	assert.Equal(t, http.StatusOK, w.Code)
}
