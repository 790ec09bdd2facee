package main

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AdminSession struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (a *App) createAdminSessionToken(session AdminSession) (string, error) {
	claims := jwt.MapClaims{
		"username": session.Username,
		"role":     session.Role,
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(adminSessionDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.cfg.AppSigningSecret))
}

func (a *App) verifyAdminSessionToken(tokenString string) (*AdminSession, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(a.cfg.AppSigningSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	if username == "" || role != "admin" {
		return nil, fmt.Errorf("invalid session payload")
	}
	return &AdminSession{Username: username, Role: role}, nil
}

// authenticateAdminCredentials checks the single static credential pair. The
// configured password is bcrypt-hashed at startup so the comparison never
// touches the plaintext.
func (a *App) authenticateAdminCredentials(username, password string) error {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.AdminUsername)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(a.adminPasswordHash, []byte(password)) == nil
	if !usernameMatch || !passwordMatch {
		return &apiError{Status: http.StatusUnauthorized, Code: "invalid_credentials", Message: "Credenciais inválidas"}
	}
	return nil
}

func (a *App) adminLoginHandler(c *gin.Context) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Usuário e senha são obrigatórios"})
		return
	}
	payload.Username = strings.TrimSpace(payload.Username)
	if payload.Username == "" || payload.Password == "" {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Usuário e senha são obrigatórios"})
		return
	}

	if err := a.authenticateAdminCredentials(payload.Username, payload.Password); err != nil {
		writeAPIError(c, err)
		return
	}

	session := AdminSession{Username: payload.Username, Role: "admin"}
	if err := a.startAdminSession(c, session); err != nil {
		a.log.Error("failed to start admin session", "err", err)
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": session})
}

func (a *App) adminLogoutHandler(c *gin.Context) {
	a.clearAdminSession(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *App) adminSessionHandler(c *gin.Context) {
	token, err := c.Cookie(adminCookieName)
	if err != nil {
		writeAPIError(c, &apiError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "Não autorizado"})
		return
	}
	session, err := a.verifyAdminSessionToken(token)
	if err != nil {
		writeAPIError(c, &apiError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "Não autorizado"})
		return
	}
	c.JSON(http.StatusOK, session)
}

func (a *App) startAdminSession(c *gin.Context, session AdminSession) error {
	token, err := a.createAdminSessionToken(session)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(adminCookieName, token, int(adminSessionDuration.Seconds()), "/", "", a.isProduction(), true)
	return nil
}

func (a *App) clearAdminSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(adminCookieName, "", -1, "/", "", a.isProduction(), true)
}

func (a *App) requireAdminSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookieName)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Não autorizado"})
			c.Abort()
			return
		}
		session, err := a.verifyAdminSessionToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Não autorizado"})
			c.Abort()
			return
		}
		c.Set("adminSession", *session)
		c.Next()
	}
}

func getAdminSession(c *gin.Context) (AdminSession, error) {
	value, ok := c.Get("adminSession")
	if !ok {
		return AdminSession{}, fmt.Errorf("missing session")
	}
	session, ok := value.(AdminSession)
	if !ok {
		return AdminSession{}, fmt.Errorf("invalid session")
	}
	return session, nil
}
