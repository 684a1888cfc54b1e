package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"provizor/internal/models"
	apperrors "provizor/pkg/errors"
	"provizor/pkg/response"
)

type registerRequest struct {
	Username string `json:"username" binding:"required,min=2,max=64,username"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=4"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("username, email and password are required"))
		return
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		response.Error(c, err)
		return
	}
	if count > 0 {
		response.Error(c, apperrors.NewConflict("Username already exists"))
		return
	}
	if err := s.db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		response.Error(c, err)
		return
	}
	if count > 0 {
		response.Error(c, apperrors.NewConflict("Email already registered"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		response.Error(c, err)
		return
	}
	user := models.User{Username: req.Username, Email: req.Email, Password: string(hash)}
	if err := s.db.Create(&user).Error; err != nil {
		response.Error(c, err)
		return
	}

	s.log.Info("user registered", zap.String("username", user.Username))
	s.issueSession(c, &user, http.StatusCreated)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("username and password are required"))
		return
	}

	var user models.User
	if err := s.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		authAttempts.WithLabelValues("failure").Inc()
		response.Error(c, apperrors.ErrInvalidCredentials)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		authAttempts.WithLabelValues("failure").Inc()
		response.Error(c, apperrors.ErrInvalidCredentials)
		return
	}

	authAttempts.WithLabelValues("success").Inc()
	s.issueSession(c, &user, http.StatusOK)
}

func (s *Server) handleLogout(c *gin.Context) {
	c.SetCookie(SessionCookie, "", -1, "/", "", s.CookieSecure, true)
	response.Success(c, http.StatusOK, gin.H{"message": "logged out"})
}

// issueSession signs a token for the user and returns it both as a session
// cookie and in the response body, for browser and API clients alike.
func (s *Server) issueSession(c *gin.Context, user *models.User, status int) {
	token, err := s.jwt.Generate(user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.SetCookie(SessionCookie, token, int(s.jwt.TTL().Seconds()), "/", "", s.CookieSecure, true)
	response.Success(c, status, gin.H{"token": token, "user": user})
}
