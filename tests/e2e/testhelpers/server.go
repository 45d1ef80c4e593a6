// Package testhelpers runs an in-process Taskdeck backend for end-to-end
// tests: real HTTP, real JWTs, bcrypt-hashed accounts, but everything in
// memory.
package testhelpers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskdeck-dev/taskdeck/internal/models"
)

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 24 * time.Hour
)

type account struct {
	user         models.User
	passwordHash []byte
}

// Backend is the in-process server. URL is what clients dial.
type Backend struct {
	URL    string
	server *httptest.Server
	secret []byte

	mu       sync.Mutex
	accounts map[string]*account // keyed by email
	tasks    []models.Task

	// generation invalidates previously issued access tokens when bumped;
	// refresh tokens stay valid so the refresh protocol can be observed.
	generation   int
	refreshCalls int
	loginCalls   int
}

// NewBackend starts the server with the given seed accounts and tasks.
func NewBackend(users []models.User, passwords map[string]string, tasks []models.Task) (*Backend, error) {
	b := &Backend{
		secret:   []byte("e2e-test-secret"),
		accounts: make(map[string]*account),
		tasks:    tasks,
	}

	for i := range users {
		password, ok := passwords[users[i].Email]
		if !ok {
			return nil, fmt.Errorf("no password seeded for %s", users[i].Email)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		b.accounts[users[i].Email] = &account{user: users[i], passwordHash: hash}
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(cors.Default())

	api := router.Group("/api")
	{
		api.POST("/auth/login", b.handleLogin)
		api.POST("/auth/register", b.handleRegister)
		api.POST("/auth/refresh", b.handleRefresh)

		authed := api.Group("")
		authed.Use(b.requireAccessToken)
		{
			authed.GET("/auth/me", b.handleMe)
			authed.GET("/tasks", b.handleListTasks)
		}
	}

	b.server = httptest.NewServer(router)
	b.URL = b.server.URL
	return b, nil
}

// Close shuts the server down.
func (b *Backend) Close() {
	b.server.Close()
}

// ExpireAccessTokens invalidates every access token issued so far while
// leaving refresh tokens valid.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generation++
}

// RefreshCalls reports how many refresh exchanges the server has seen.
func (b *Backend) RefreshCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshCalls
}

// LoginCalls reports how many login attempts the server has seen.
func (b *Backend) LoginCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loginCalls
}

func (b *Backend) issueToken(userID, typ string, ttl time.Duration, generation int) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"typ": typ,
		"gen": generation,
		"exp": jwt.NewNumericDate(time.Now().Add(ttl)),
		"iat": jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

func (b *Backend) parseToken(raw, wantType string) (string, int, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return b.secret, nil
	})
	if err != nil || !token.Valid {
		return "", 0, fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["typ"] != wantType {
		return "", 0, fmt.Errorf("wrong token type")
	}
	sub, _ := claims["sub"].(string)
	gen, _ := claims["gen"].(float64)
	return sub, int(gen), nil
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func (b *Backend) userByID(id string) *models.User {
	for _, acct := range b.accounts {
		if acct.user.ID == id {
			user := acct.user
			return &user
		}
	}
	return nil
}

func (b *Backend) requireAccessToken(c *gin.Context) {
	b.mu.Lock()
	generation := b.generation
	b.mu.Unlock()

	userID, gen, err := b.parseToken(bearerToken(c), "access")
	if err != nil || gen < generation {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
		return
	}
	c.Set("userID", userID)
}

func (b *Backend) handleLogin(c *gin.Context) {
	b.mu.Lock()
	b.loginCalls++
	b.mu.Unlock()

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request"})
		return
	}

	b.mu.Lock()
	acct, ok := b.accounts[body.Email]
	generation := b.generation
	b.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(body.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	access, err := b.issueToken(acct.user.ID, "access", accessTTL, generation)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	refresh, err := b.issueToken(acct.user.ID, "refresh", refreshTTL, generation)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
		"user":          acct.user,
	})
}

func (b *Backend) handleRegister(c *gin.Context) {
	var body struct {
		Name       string `json:"name"`
		Email      string `json:"email"`
		Password   string `json:"password"`
		Department string `json:"department"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.accounts[body.Email]; exists {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation failed",
			"fields": gin.H{"email": "already registered"},
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.MinCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	user := models.User{
		ID:          ulid.Make().String(),
		Name:        body.Name,
		Email:       body.Email,
		Department:  body.Department,
		Roles:       []string{models.RoleStaff},
		Permissions: models.RolePermissions[models.RoleStaff],
	}
	b.accounts[body.Email] = &account{user: user, passwordHash: hash}

	// Registration returns the created user without tokens; a separate
	// login follows.
	c.JSON(http.StatusCreated, user)
}

func (b *Backend) handleRefresh(c *gin.Context) {
	b.mu.Lock()
	b.refreshCalls++
	generation := b.generation
	b.mu.Unlock()

	userID, _, err := b.parseToken(bearerToken(c), "refresh")
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token invalid"})
		return
	}

	access, err := b.issueToken(userID, "access", accessTTL, generation)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": access})
}

func (b *Backend) handleMe(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	user := b.userByID(c.GetString("userID"))
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (b *Backend) handleListTasks(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, b.tasks)
}
