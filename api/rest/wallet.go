package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playrise/questengine/game/wallet"
	mw "github.com/playrise/questengine/middleware"
)

// WalletHandler exposes read access to the user's wallet.
type WalletHandler struct {
	svc *wallet.Service
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(svc *wallet.Service) *WalletHandler {
	return &WalletHandler{svc: svc}
}

// Balances returns the caller's wallet state.
// GET /api/wallet
func (h *WalletHandler) Balances(c *gin.Context) {
	userID := mw.GetUserID(c)
	user, err := h.svc.Balances(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, wallet.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"balance": user.Balance,
		"coins":   user.Coins,
		"energy":  user.Energy,
	})
}
