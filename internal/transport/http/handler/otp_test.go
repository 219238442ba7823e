package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ErlanBelekov/xblt/internal/domain"
	"github.com/ErlanBelekov/xblt/internal/metrics"
	"github.com/ErlanBelekov/xblt/internal/transport/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// fakeOTPUsecase implements the unexported otpUsecaser interface via method matching.
type fakeOTPUsecase struct {
	requestOTP func(ctx context.Context, email string) error
	calls      int
}

func (f *fakeOTPUsecase) RequestOTP(ctx context.Context, email string) error {
	f.calls++
	return f.requestOTP(ctx, email)
}

func newOTPEngine(uc *fakeOTPUsecase) *gin.Engine {
	h := handler.NewOTPHandler(uc, testLogger())

	r := gin.New()
	r.POST("/users/otp-generate", h.Generate)
	return r
}

func postOTP(uc *fakeOTPUsecase, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users/otp-generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	newOTPEngine(uc).ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

// ---- Generate ----

func TestGenerate_InvalidJSON_Returns400(t *testing.T) {
	uc := &fakeOTPUsecase{}
	w := postOTP(uc, `{bad json}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if uc.calls != 0 {
		t.Error("usecase must not be called")
	}
}

func TestGenerate_InvalidEmail_Returns400WithFieldErrors(t *testing.T) {
	uc := &fakeOTPUsecase{}
	w := postOTP(uc, `{"email":"not-an-email"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if uc.calls != 0 {
		t.Error("usecase must not be called")
	}
	errs, ok := decode(t, w)["errors"].([]any)
	if !ok || len(errs) != 1 {
		t.Fatalf("errors = %v", decode(t, w)["errors"])
	}
	fe := errs[0].(map[string]any)
	if fe["field"] != "email" || fe["message"] != "Invalid Email" {
		t.Errorf("field error = %v", fe)
	}
}

func TestGenerate_MissingEmail_Returns400(t *testing.T) {
	uc := &fakeOTPUsecase{}
	w := postOTP(uc, `{}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Email is required") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestGenerate_Success_Returns200(t *testing.T) {
	var got string
	uc := &fakeOTPUsecase{
		requestOTP: func(_ context.Context, email string) error {
			got = email
			return nil
		},
	}
	w := postOTP(uc, `{"email":"new@x.com"}`)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if got != "new@x.com" {
		t.Errorf("usecase got %q", got)
	}
	if msg := decode(t, w)["message"]; msg != "OTP sent successfully" {
		t.Errorf("message = %v", msg)
	}
}

func TestGenerate_Conflicts_Return400(t *testing.T) {
	cases := map[error]string{
		domain.ErrUserExists: "User already created with this email",
		domain.ErrOTPActive:  "OTP already sent. Please check your email.",
	}
	for err, want := range cases {
		uc := &fakeOTPUsecase{
			requestOTP: func(_ context.Context, _ string) error { return err },
		}
		w := postOTP(uc, `{"email":"new@x.com"}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%v: status = %d, want 400", err, w.Code)
		}
		if msg := decode(t, w)["message"]; msg != want {
			t.Errorf("%v: message = %v, want %q", err, msg, want)
		}
	}
}

func TestGenerate_InternalError_Returns500WithoutDetails(t *testing.T) {
	uc := &fakeOTPUsecase{
		requestOTP: func(_ context.Context, _ string) error {
			return errors.New("store otp: connection reset by peer")
		},
	}
	w := postOTP(uc, `{"email":"new@x.com"}`)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "connection reset") {
		t.Errorf("body leaks internal error: %s", w.Body.String())
	}
	if msg := decode(t, w)["message"]; msg != "Something went wrong" {
		t.Errorf("message = %v", msg)
	}
}

func TestGenerate_CountsOutcomes(t *testing.T) {
	issued := metrics.OTPRequestsTotal.WithLabelValues(metrics.OutcomeIssued)
	active := metrics.OTPRequestsTotal.WithLabelValues(metrics.OutcomeOTPActive)
	issuedBefore, activeBefore := testutil.ToFloat64(issued), testutil.ToFloat64(active)

	postOTP(&fakeOTPUsecase{requestOTP: func(context.Context, string) error { return nil }}, `{"email":"new@x.com"}`)
	postOTP(&fakeOTPUsecase{requestOTP: func(context.Context, string) error { return domain.ErrOTPActive }}, `{"email":"new@x.com"}`)

	if got := testutil.ToFloat64(issued) - issuedBefore; got != 1 {
		t.Errorf("issued delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(active) - activeBefore; got != 1 {
		t.Errorf("otp_active delta = %v, want 1", got)
	}
}
