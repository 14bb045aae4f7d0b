package errs_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/deferq/deferq/app/services/deferqd/errs"
)

func TestAppErrorCaller(t *testing.T) {
	err := errs.NewAppError(http.StatusBadRequest, "bad input")

	var appErr *errs.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected an *AppError, got %T", err)
	}

	if appErr.Code != http.StatusBadRequest {
		t.Errorf("code= %d, got %d", http.StatusBadRequest, appErr.Code)
	}
	if appErr.Error() != "bad input" {
		t.Errorf("message= %q, got %q", "bad input", appErr.Error())
	}

	//the recorded location is the construction site, not the constructor
	if !strings.Contains(appErr.FuncName, "TestAppErrorCaller") {
		t.Errorf("expected the caller func name, got %q", appErr.FuncName)
	}
	if !strings.Contains(appErr.FileName, "errs_test.go") {
		t.Errorf("expected the caller file name, got %q", appErr.FileName)
	}
}

func TestAppInternalErrHidesNothingInternally(t *testing.T) {
	err := errs.NewAppInternalErr(errors.New("pq: connection refused"))

	var appErr *errs.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected an *AppError, got %T", err)
	}

	if appErr.Code != http.StatusInternalServerError {
		t.Errorf("code= %d, got %d", http.StatusInternalServerError, appErr.Code)
	}
	if appErr.Error() != "pq: connection refused" {
		t.Errorf("message= %q, got %q", "pq: connection refused", appErr.Error())
	}
}
