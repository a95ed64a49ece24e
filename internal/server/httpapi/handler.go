package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/mailauth/internal/common"
	"github.com/dmitrijs2005/mailauth/internal/server/mailer"
	"github.com/dmitrijs2005/mailauth/internal/server/models"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error  string   `json:"error"`
	Failed []string `json:"failed,omitempty"`
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Profile      models.Profile `json:"profile"`
	SecretToken  string         `json:"secretToken"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type refreshResponse struct {
	Profile      models.Profile `json:"profile"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

type sealPasswordRequest struct {
	SecretToken string `json:"secretToken" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

type sendMailRequest struct {
	SecretToken string         `json:"secretToken" binding:"required"`
	Account     mailer.Account `json:"account"`
	Message     mailer.Message `json:"message"`
}

// writeError maps a service error to a status code. Only classified errors
// are shown to the client as is.
func (s *Server) writeError(c *gin.Context, err error) {
	var de *mailer.DeliveryError
	switch {
	case errors.As(err, &de):
		c.JSON(http.StatusBadGateway, errorResponse{Error: "delivery failed", Failed: de.Failed})
	case errors.Is(err, common.ErrorUnauthorized):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, common.ErrorBadRequest):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, common.ErrorAlreadyExists):
		c.JSON(http.StatusConflict, errorResponse{Error: "already exists"})
	default:
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *Server) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (s *Server) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	profile, err := s.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, profile)
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	au, err := s.auth.ValidateCredentials(ctx, req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if au == nil {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		return
	}

	res, err := s.auth.Login(ctx, au)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Profile:      res.Profile,
		SecretToken:  res.SecretToken,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

func (s *Server) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	res, err := s.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, refreshResponse{
		Profile:      res.Profile,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

func (s *Server) Logout(c *gin.Context) {
	if err := s.auth.Logout(c.Request.Context(), c.GetString(userIDKey)); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (s *Server) SealPassword(c *gin.Context) {
	var req sealPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	stored, err := s.mail.SealPassword(req.SecretToken, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stored)
}

func (s *Server) SendMail(c *gin.Context) {
	var req sendMailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if req.Message.ContentType == "" {
		req.Message.ContentType = mailer.TextPlain
	}

	if err := s.mail.Send(c.Request.Context(), req.SecretToken, req.Account, req.Message); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivered": len(req.Message.To)})
}
