package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"provizor/internal/models"
	"provizor/internal/profiles"
	apperrors "provizor/pkg/errors"
	"provizor/pkg/response"
)

type provisioningRequest struct {
	Username                  string `json:"username"`
	PasswordApproach          string `json:"password_approach"`
	Password                  string `json:"password"`
	VaultwardenMasterPassword string `json:"vaultwarden_master_password"`
	AutoProvision             bool   `json:"auto_provision"`
}

type profileRequest struct {
	ConfigName     string              `json:"config_name"`
	DeploymentType string              `json:"deployment_type"`
	Services       map[string]bool     `json:"services"`
	Values         map[string]string   `json:"values"`
	Provisioning   provisioningRequest `json:"provisioning"`
}

func (r profileRequest) form(username string) profiles.Form {
	deployment := r.DeploymentType
	if deployment == "" {
		deployment = "docker"
	}
	return profiles.Form{
		Username:       username,
		ConfigName:     r.ConfigName,
		DeploymentType: deployment,
		Services:       r.Services,
		Values:         r.Values,
		Provisioning: profiles.Provisioning{
			Username:                  r.Provisioning.Username,
			Approach:                  r.Provisioning.PasswordApproach,
			Password:                  r.Provisioning.Password,
			VaultwardenMasterPassword: r.Provisioning.VaultwardenMasterPassword,
			AutoProvision:             r.Provisioning.AutoProvision,
		},
	}
}

// handleDashboard returns all profile branches for admins and the caller's
// own configurations for everyone else.
func (s *Server) handleDashboard(c *gin.Context) {
	user := CurrentUser(c)
	if user.IsAdmin {
		branches, err := s.store.ListBranches()
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"branches": branches})
		return
	}

	configs, err := s.store.UserConfigs(user.Username)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"configs": configs})
}

// handleServices exposes the service catalog for discovery. No auth: the
// catalog doubles as the public service listing.
func (s *Server) handleServices(c *gin.Context) {
	response.Success(c, http.StatusOK, s.catalog)
}

func (s *Server) handleCreateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid profile payload"))
		return
	}
	if req.ConfigName == "" {
		response.Error(c, apperrors.NewBadRequest("Configuration name is required"))
		return
	}
	s.saveProfile(c, CurrentUser(c).Username, req, http.StatusCreated)
}

func (s *Server) handleGetProfile(c *gin.Context) {
	user := CurrentUser(c)
	owner, ok := s.profileOwner(c, user)
	if !ok {
		return
	}

	branch := owner + "-" + c.Param("config")
	profile, err := s.store.Load(branch)
	if err != nil {
		switch {
		case errors.Is(err, profiles.ErrNotFound):
			response.Error(c, apperrors.ErrNotFound)
		case errors.Is(err, profiles.ErrIncomplete):
			response.Error(c, apperrors.NewBadRequest("profile is incomplete"))
		default:
			response.Error(c, err)
		}
		return
	}
	response.Success(c, http.StatusOK, profile)
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	user := CurrentUser(c)
	owner, ok := s.profileOwner(c, user)
	if !ok {
		return
	}

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid profile payload"))
		return
	}
	req.ConfigName = c.Param("config")
	s.saveProfile(c, owner, req, http.StatusOK)
}

// profileOwner resolves which user's branch the request addresses. Admins
// may act on another user's profile via the user query parameter; everyone
// else is pinned to their own branches.
func (s *Server) profileOwner(c *gin.Context, user *models.User) (string, bool) {
	owner := c.Query("user")
	if owner == "" || owner == user.Username {
		return user.Username, true
	}
	if !user.IsAdmin {
		response.Error(c, apperrors.ErrForbidden)
		return "", false
	}
	return owner, true
}

func (s *Server) saveProfile(c *gin.Context, username string, req profileRequest, status int) {
	branch, err := s.store.Save(s.catalog, req.form(username))
	if err != nil {
		profileSaves.WithLabelValues("failure").Inc()
		if strings.Contains(err.Error(), "required") || strings.Contains(err.Error(), "invalid") {
			response.Error(c, apperrors.NewBadRequest(err.Error()))
			return
		}
		response.Error(c, err)
		return
	}
	profileSaves.WithLabelValues("success").Inc()
	s.log.Info("profile saved",
		zap.String("branch", branch),
		zap.String("user", username))
	response.Success(c, status, gin.H{"branch": branch})
}

// handleAdminOverview reports tenants, available infrastructures and the
// non-admin accounts in one payload.
func (s *Server) handleAdminOverview(c *gin.Context) {
	tenants, err := s.admin.Tenants()
	if err != nil {
		response.Error(c, err)
		return
	}
	infras, err := s.admin.Infrastructures()
	if err != nil {
		response.Error(c, err)
		return
	}
	var users []models.User
	if err := s.db.Where("is_admin = ?", false).Order("username").Find(&users).Error; err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"tenants":         tenants,
		"infrastructures": infras,
		"users":           users,
	})
}

type linkRequest struct {
	Tenant string `json:"tenant" binding:"required"`
	Target string `json:"target" binding:"required"`
}

func (s *Server) handleAdminLink(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("tenant and target are required"))
		return
	}
	if err := s.admin.LinkTarget(req.Tenant, req.Target); err != nil {
		response.Error(c, apperrors.NewBadRequest(err.Error()))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tenant": req.Tenant, "target": req.Target})
}

// handleAdminSaveTenant writes a profile on behalf of another user. The
// target account must exist so the branch prefix stays meaningful.
func (s *Server) handleAdminSaveTenant(c *gin.Context) {
	name := c.Param("name")

	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", name).Count(&count).Error; err != nil {
		response.Error(c, err)
		return
	}
	if count == 0 {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid profile payload"))
		return
	}
	if req.ConfigName == "" {
		response.Error(c, apperrors.NewBadRequest("Configuration name is required"))
		return
	}
	s.saveProfile(c, name, req, http.StatusOK)
}
