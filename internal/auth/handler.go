package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streamroom/backend/pkg/response"
)

// Handler mints development tokens. The real platform issues tokens from its
// account service; this endpoint exists so the realtime server can be run and
// tested standalone, and is disabled unless explicitly enabled by config.
type Handler struct {
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates the dev token handler.
func NewHandler(jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{jwt: jwt, logger: logger}
}

type tokenRequest struct {
	Username string `json:"username" binding:"required"`
	Role     string `json:"role"`
}

// MintToken issues a token for an arbitrary username with a fresh user ID.
func (h *Handler) MintToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "username is required")
		return
	}
	if req.Role == "" {
		req.Role = "user"
	}
	userID := uuid.New()
	token, err := h.jwt.Generate(userID, req.Username, req.Role)
	if err != nil {
		response.Internal(c, "token generation failed")
		return
	}
	h.logger.Info("dev token minted", zap.String("username", req.Username), zap.String("role", req.Role))
	response.OK(c, gin.H{
		"token":    token,
		"user_id":  userID.String(),
		"username": req.Username,
	})
}
