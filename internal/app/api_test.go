package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/dental-api/internal/app"
	"github.com/jwalitptl/dental-api/internal/config"
	"github.com/jwalitptl/dental-api/internal/email"
	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/testutil"
)

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	status  int
}

func (r apiResponse) IsSuccess() bool {
	return r.Status == "success"
}

func (r apiResponse) GetString(t *testing.T, key string) string {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(r.Data, &m))
	s, _ := m[key].(string)
	return s
}

type testAPI struct {
	engine  *gin.Engine
	fixture *testutil.Fixture
	app     *app.App
}

type capturingMailer struct {
	sent chan email.Message
}

func (m *capturingMailer) Send(_ context.Context, msg email.Message) error {
	m.sent <- msg
	return nil
}

func newTestAPI(t *testing.T) (*testAPI, *capturingMailer) {
	t.Helper()
	f := testutil.NewFixture(t)
	mailer := &capturingMailer{sent: make(chan email.Message, 16)}

	cfg := &config.Config{
		Server:  config.ServerConfig{Mode: gin.TestMode, RequestTimeout: 5 * time.Second, MaxBodyBytes: 1 << 20},
		Storage: config.StorageConfig{Driver: "memory"},
		Clinic: config.ClinicConfig{
			Timezone:         "UTC",
			NoShowThreshold:  2,
			NoShowWindowDays: 30,
			SweepBatchSize:   50,
			NotifyTimeout:    time.Second,
		},
		JWT:  config.JWTConfig{Secret: "test-secret", Issuer: "dental-test", ExpiryHours: 1},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}

	a, err := app.New(app.Deps{
		Config:     cfg,
		Store:      f.Store,
		Mailer:     mailer,
		Registry:   prometheus.NewRegistry(),
		Logger:     zerolog.Nop(),
		Now:        func() time.Time { return testutil.Now },
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)
	t.Cleanup(a.Notifier.Wait)

	return &testAPI{engine: a.Router.Engine(), fixture: f, app: a}, mailer
}

func (api *testAPI) makeRequest(t *testing.T, method, path string, body interface{}, token string) apiResponse {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(raw)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, "/api/v1"+path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	resp.status = w.Code
	return resp
}

func (api *testAPI) addStaff(t *testing.T, emailAddr string, role model.Role, dentistID *model.Dentist) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("staff-password"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{Email: emailAddr, PasswordHash: string(hash), Role: role, Active: true}
	if dentistID != nil {
		u.DentistID = &dentistID.ID
	}
	require.NoError(t, api.fixture.Store.Users.Create(context.Background(), u))
}

func (api *testAPI) login(t *testing.T, emailAddr, password string) string {
	t.Helper()
	resp := api.makeRequest(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    emailAddr,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, resp.status, resp.Message)
	token := resp.GetString(t, "access_token")
	require.NotEmpty(t, token)
	return token
}

func TestAPI_BookingFlow(t *testing.T) {
	api, mailer := newTestAPI(t)
	f := api.fixture
	api.addStaff(t, "admin@clinic.test", model.RoleAdmin, nil)

	reg := api.makeRequest(t, http.MethodPost, "/auth/register", map[string]string{
		"first_name": "Robin",
		"last_name":  "Lee",
		"email":      "Robin@Example.com",
		"password":   "correct-horse",
	}, "")
	require.Equal(t, http.StatusCreated, reg.status, reg.Message)
	assert.Equal(t, "robin@example.com", reg.GetString(t, "email"))

	patientToken := api.login(t, "robin@example.com", "correct-horse")
	adminToken := api.login(t, "admin@clinic.test", "staff-password")

	date := testutil.NextWeekday(time.Wednesday).String()
	booking := map[string]string{
		"service_id": f.Service.ID.String(),
		"branch_id":  f.Branch.ID.String(),
		"dentist_id": f.Dentist.ID.String(),
		"date":       date,
		"time":       "09:00",
	}

	booked := api.makeRequest(t, http.MethodPost, "/appointments", booking, patientToken)
	require.Equal(t, http.StatusCreated, booked.status, booked.Message)
	assert.Equal(t, "pending", booked.GetString(t, "status"))
	assert.Equal(t, "09:00", booked.GetString(t, "time"))
	apptID := booked.GetString(t, "id")

	// same dentist lane, same slot
	booking["patient_id"] = f.Patient.ID.String()
	conflict := api.makeRequest(t, http.MethodPost, "/appointments", booking, adminToken)
	assert.Equal(t, http.StatusConflict, conflict.status)
	assert.Equal(t, "error", conflict.Status)

	avail := api.makeRequest(t, http.MethodGet,
		"/availability?date="+date+"&branch_id="+f.Branch.ID.String()+"&dentist_id="+f.Dentist.ID.String(), nil, patientToken)
	require.Equal(t, http.StatusOK, avail.status, avail.Message)
	assert.NotContains(t, string(avail.Data), `"09:00"`)
	assert.Contains(t, string(avail.Data), `"10:00"`)

	denied := api.makeRequest(t, http.MethodPatch, "/appointments/"+apptID+"/status",
		map[string]string{"status": "confirmed"}, patientToken)
	assert.Equal(t, http.StatusForbidden, denied.status)

	confirmed := api.makeRequest(t, http.MethodPatch, "/appointments/"+apptID+"/status",
		map[string]string{"status": "confirmed"}, adminToken)
	require.Equal(t, http.StatusOK, confirmed.status, confirmed.Message)
	assert.Equal(t, "confirmed", confirmed.GetString(t, "status"))

	select {
	case msg := <-mailer.sent:
		assert.Equal(t, "robin@example.com", msg.To)
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation email was not sent")
	}

	allowed := api.makeRequest(t, http.MethodGet, "/appointments/"+apptID+"/allowed-statuses", nil, patientToken)
	require.Equal(t, http.StatusOK, allowed.status)
	assert.Contains(t, string(allowed.Data), "cancelled")

	cancelled := api.makeRequest(t, http.MethodPatch, "/appointments/"+apptID+"/status",
		map[string]string{"status": "cancelled"}, patientToken)
	require.Equal(t, http.StatusOK, cancelled.status, cancelled.Message)

	rebooked := api.makeRequest(t, http.MethodPost, "/appointments", booking, adminToken)
	assert.Equal(t, http.StatusCreated, rebooked.status, rebooked.Message)
	assert.Equal(t, "confirmed", rebooked.GetString(t, "status"))
}

func TestAPI_Errors(t *testing.T) {
	api, _ := newTestAPI(t)
	api.addStaff(t, "admin@clinic.test", model.RoleAdmin, nil)
	adminToken := api.login(t, "admin@clinic.test", "staff-password")

	unauth := api.makeRequest(t, http.MethodGet, "/appointments", nil, "")
	assert.Equal(t, http.StatusUnauthorized, unauth.status)

	badLogin := api.makeRequest(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "admin@clinic.test",
		"password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, badLogin.status)

	invalid := api.makeRequest(t, http.MethodPost, "/appointments", map[string]string{
		"service_id": api.fixture.Service.ID.String(),
		"branch_id":  api.fixture.Branch.ID.String(),
		"date":       "10-03-2026",
		"time":       "09:00",
	}, adminToken)
	assert.Equal(t, http.StatusBadRequest, invalid.status)
	assert.Contains(t, invalid.Message, "date")

	badStatus := api.makeRequest(t, http.MethodPatch, "/appointments/"+api.fixture.Patient.ID.String()+"/status",
		map[string]string{"status": "archived"}, adminToken)
	assert.Equal(t, http.StatusBadRequest, badStatus.status)

	missing := api.makeRequest(t, http.MethodGet, "/appointments/"+api.fixture.Patient.ID.String(), nil, adminToken)
	assert.Equal(t, http.StatusNotFound, missing.status)

	past := api.makeRequest(t, http.MethodPost, "/appointments", map[string]string{
		"patient_id": api.fixture.Patient.ID.String(),
		"service_id": api.fixture.Service.ID.String(),
		"branch_id":  api.fixture.Branch.ID.String(),
		"date":       testutil.Day(-1).String(),
		"time":       "09:00",
	}, adminToken)
	assert.Equal(t, http.StatusBadRequest, past.status)
}

func TestAPI_SweepRequiresAdmin(t *testing.T) {
	api, _ := newTestAPI(t)
	f := api.fixture
	api.addStaff(t, "admin@clinic.test", model.RoleAdmin, nil)
	api.addStaff(t, "adams@clinic.test", model.RoleDentist, f.Dentist)

	f.AddAppointment(t, testutil.Day(-3), "09:00", &f.Dentist.ID, model.AppointmentStatusConfirmed)

	dentistToken := api.login(t, "adams@clinic.test", "staff-password")
	forbidden := api.makeRequest(t, http.MethodPost, "/appointments/sweep", nil, dentistToken)
	assert.Equal(t, http.StatusForbidden, forbidden.status)

	adminToken := api.login(t, "admin@clinic.test", "staff-password")
	swept := api.makeRequest(t, http.MethodPost, "/appointments/sweep", nil, adminToken)
	require.Equal(t, http.StatusOK, swept.status, swept.Message)
	assert.JSONEq(t, `{"scanned":1,"processed":1,"failed":0}`, string(swept.Data))
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	api, _ := newTestAPI(t)

	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1.0", w.Header().Get("X-API-Version"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	api.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "dental_http_requests_total"))
}
