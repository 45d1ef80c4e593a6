package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskdeck-dev/taskdeck/internal/models"
)

const requestTimeout = 30 * time.Second

// Client is the HTTP client for the Taskdeck API. Authenticated calls go
// through an AuthTransport that attaches the bearer token and runs the
// refresh-then-retry protocol; the auth endpoints themselves (login,
// register, refresh) use a bare client so a refresh can never recurse.
type Client struct {
	baseURL    string
	httpClient *http.Client // authenticated calls
	bareClient *http.Client // login/register/refresh
	log        zerolog.Logger
}

// New creates a new API client for the given server.
func New(serverIP string, log zerolog.Logger) *Client {
	// Assume HTTPS by default; skip verification for self-signed certs.
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true,
		},
	}

	return &Client{
		baseURL: fmt.Sprintf("https://%s", serverIP),
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		bareClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		log: log,
	}
}

// SetTokenSource wires the session manager into the authenticated
// transport. Until this is called, requests go out without credentials.
func (c *Client) SetTokenSource(src TokenSource) {
	base := c.httpClient.Transport
	c.httpClient = &http.Client{
		Timeout:   c.httpClient.Timeout,
		Transport: &AuthTransport{Base: base, Source: src, Log: c.log},
	}
}

// SetHTTPClient sets a custom HTTP client for both surfaces (tests).
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
	c.bareClient = httpClient
}

// SetBaseURL overrides the computed base URL (tests).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// do issues a JSON request and decodes the response into out (when out is
// non-nil). Non-2xx responses become typed errors; transport failures
// become network errors.
func (c *Client) do(ctx context.Context, httpClient *http.Client, method, path string, body any, out any, bearer string) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", bearer))
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var apiErr *Error
		if unwrapped := unwrapAPIError(err); unwrapped != nil {
			apiErr = unwrapped
		} else {
			apiErr = networkError(err)
		}
		return apiErr
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyStatus(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// unwrapAPIError digs a typed error out of the url.Error wrapping that
// http.Client applies to transport failures.
func unwrapAPIError(err error) *Error {
	for err != nil {
		if apiErr, ok := err.(*Error); ok {
			return apiErr
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = unwrapper.Unwrap()
	}
	return nil
}

// LoginResponse is the payload returned by a successful login.
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var resp LoginResponse
	if err := c.do(ctx, c.bareClient, http.MethodPost, "/api/auth/login", body, &resp, ""); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RegisterRequest is the account-creation payload.
type RegisterRequest struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Department string `json:"department" validate:"required"`
}

// Register creates an account. It does not authenticate: the backend
// returns the created user without tokens, and a separate login follows.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, c.bareClient, http.MethodPost, "/api/auth/register", req, &user, ""); err != nil {
		return nil, err
	}
	return &user, nil
}

// RefreshAccessToken exchanges the refresh token for a new access token.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, c.bareClient, http.MethodPost, "/api/auth/refresh", struct{}{}, &resp, refreshToken); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// Me returns the identity behind the current access token.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/api/auth/me", nil, &user, ""); err != nil {
		return nil, err
	}
	return &user, nil
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Department string `json:"department,omitempty"`
}

// UpdateProfile updates the current user's profile.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, c.httpClient, http.MethodPut, "/api/auth/profile", update, &user, ""); err != nil {
		return nil, err
	}
	return &user, nil
}

// PasswordUpdate carries a password change.
type PasswordUpdate struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// UpdatePassword changes the current user's password.
func (c *Client) UpdatePassword(ctx context.Context, update PasswordUpdate) error {
	return c.do(ctx, c.httpClient, http.MethodPut, "/api/auth/password", update, nil, "")
}

// ListTasks returns all tasks visible to the current user.
func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/api/tasks", nil, &tasks, ""); err != nil {
		return nil, err
	}
	return tasks, nil
}

// TasksByDepartment returns the tasks of one department.
func (c *Client) TasksByDepartment(ctx context.Context, departmentID string) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/api/tasks/department/"+departmentID, nil, &tasks, ""); err != nil {
		return nil, err
	}
	return tasks, nil
}

// TasksByStatus returns the tasks in one status.
func (c *Client) TasksByStatus(ctx context.Context, status string) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/api/tasks/status/"+status, nil, &tasks, ""); err != nil {
		return nil, err
	}
	return tasks, nil
}

// TaskRequest is the create/update payload for a task.
type TaskRequest struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Department  string   `json:"department,omitempty"`
	AssignedTo  string   `json:"assigned_to,omitempty"`
	Status      string   `json:"status,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	DueDate     string   `json:"due_date,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// CreateTask creates a new task.
func (c *Client) CreateTask(ctx context.Context, req TaskRequest) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, c.httpClient, http.MethodPost, "/api/tasks", req, &task, ""); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask updates an existing task.
func (c *Client) UpdateTask(ctx context.Context, taskID string, req TaskRequest) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, c.httpClient, http.MethodPut, "/api/tasks/"+taskID, req, &task, ""); err != nil {
		return nil, err
	}
	return &task, nil
}

// ApproveTask approves a task awaiting approval.
func (c *Client) ApproveTask(ctx context.Context, taskID string) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, c.httpClient, http.MethodPost, "/api/tasks/"+taskID+"/approve", struct{}{}, &task, ""); err != nil {
		return nil, err
	}
	return &task, nil
}

// ArchiveTask archives a completed task.
func (c *Client) ArchiveTask(ctx context.Context, taskID string) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, c.httpClient, http.MethodPost, "/api/tasks/"+taskID+"/archive", struct{}{}, &task, ""); err != nil {
		return nil, err
	}
	return &task, nil
}

// SearchFilters is the task search payload.
type SearchFilters struct {
	Query      string   `json:"query,omitempty" yaml:"query"`
	Department string   `json:"department,omitempty" yaml:"department"`
	Status     string   `json:"status,omitempty" yaml:"status"`
	Priority   string   `json:"priority,omitempty" yaml:"priority"`
	AssignedTo string   `json:"assigned_to,omitempty" yaml:"assigned_to"`
	Tags       []string `json:"tags,omitempty" yaml:"tags"`
}

// SearchTasks runs a filtered task search.
func (c *Client) SearchTasks(ctx context.Context, filters SearchFilters) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.do(ctx, c.httpClient, http.MethodPost, "/api/tasks/search", filters, &tasks, ""); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListUsers returns all users.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/api/users", nil, &users, ""); err != nil {
		return nil, err
	}
	return users, nil
}

// UserUpdate carries the editable fields of another user.
type UserUpdate struct {
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Department string `json:"department,omitempty"`
}

// UpdateUser updates a user's details.
func (c *Client) UpdateUser(ctx context.Context, userID string, update UserUpdate) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, c.httpClient, http.MethodPut, "/api/users/"+userID, update, &user, ""); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUserRoles replaces a user's role set.
func (c *Client) UpdateUserRoles(ctx context.Context, userID string, roles []string) (*models.User, error) {
	body := map[string][]string{"roles": roles}
	var user models.User
	if err := c.do(ctx, c.httpClient, http.MethodPut, "/api/users/"+userID+"/roles", body, &user, ""); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUserDepartment moves a user to another department.
func (c *Client) UpdateUserDepartment(ctx context.Context, userID, department string) (*models.User, error) {
	body := map[string]string{"department": department}
	var user models.User
	if err := c.do(ctx, c.httpClient, http.MethodPut, "/api/users/"+userID+"/department", body, &user, ""); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListDepartments returns all departments.
func (c *Client) ListDepartments(ctx context.Context) ([]models.Department, error) {
	var departments []models.Department
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/api/departments", nil, &departments, ""); err != nil {
		return nil, err
	}
	return departments, nil
}

// CreateDepartment creates a new department.
func (c *Client) CreateDepartment(ctx context.Context, code, name string) (*models.Department, error) {
	body := map[string]string{"code": code, "name": name}
	var department models.Department
	if err := c.do(ctx, c.httpClient, http.MethodPost, "/api/departments", body, &department, ""); err != nil {
		return nil, err
	}
	return &department, nil
}

// ListReports returns generated reports.
func (c *Client) ListReports(ctx context.Context) ([]models.Report, error) {
	var reports []models.Report
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/api/reports", nil, &reports, ""); err != nil {
		return nil, err
	}
	return reports, nil
}

// ReportTemplates returns the available report templates.
func (c *Client) ReportTemplates(ctx context.Context) ([]models.ReportTemplate, error) {
	var templates []models.ReportTemplate
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/api/reports/templates", nil, &templates, ""); err != nil {
		return nil, err
	}
	return templates, nil
}

// GenerateReport generates a report from a template with search filters.
func (c *Client) GenerateReport(ctx context.Context, templateName string, filters SearchFilters) (*models.Report, error) {
	body := struct {
		TemplateName string        `json:"template_name"`
		Filters      SearchFilters `json:"filters"`
	}{TemplateName: templateName, Filters: filters}

	var report models.Report
	if err := c.do(ctx, c.httpClient, http.MethodPost, "/api/reports/generate", body, &report, ""); err != nil {
		return nil, err
	}
	return &report, nil
}

// ExportReport downloads a report's rendered bytes.
func (c *Client) ExportReport(ctx context.Context, reportID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/reports/"+reportID+"/export", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if apiErr := unwrapAPIError(err); apiErr != nil {
			return nil, apiErr
		}
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, body)
	}
	return body, nil
}

// DeleteReport removes a generated report.
func (c *Client) DeleteReport(ctx context.Context, reportID string) error {
	return c.do(ctx, c.httpClient, http.MethodDelete, "/api/reports/"+reportID, nil, nil, "")
}
