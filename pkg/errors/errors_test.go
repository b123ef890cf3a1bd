package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewCarriesCodeAndStack(t *testing.T) {
	err := New(ErrCodeNumeralUnparseable, "no digits")
	if err.Code != ErrCodeNumeralUnparseable {
		t.Errorf("code = %s, want %s", err.Code, ErrCodeNumeralUnparseable)
	}
	if err.Stack == "" {
		t.Error("expected a captured stack")
	}
	if !strings.Contains(err.Error(), "ENG_001") {
		t.Errorf("Error() = %q, want code in message", err.Error())
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "ignored") != nil {
		t.Error("Wrap(nil, ...) must return nil")
	}
}

func TestWrapPreservesCodeForUnknown(t *testing.T) {
	inner := New(ErrCodeSearchQueryFailed, "query failed")
	outer := Wrap(inner, CodeUnknown, "retrieval layer")
	if outer.Code != ErrCodeSearchQueryFailed {
		t.Errorf("code = %s, want inner code preserved", outer.Code)
	}
}

func TestUnwrapChain(t *testing.T) {
	root := stderrors.New("socket closed")
	mid := Wrap(root, ErrCodeDatabaseError, "store failed")
	top := fmt.Errorf("analysis %s: %w", "doc-1", mid)

	if !stderrors.Is(top, root) {
		t.Error("errors.Is should reach the root cause")
	}
	if !IsCode(top, ErrCodeDatabaseError) {
		t.Error("IsCode should find the wrapped code")
	}
	if IsCode(top, ErrCodeCacheError) {
		t.Error("IsCode matched an absent code")
	}
}

func TestGetCode(t *testing.T) {
	if GetCode(nil) != CodeOK {
		t.Error("nil error should map to CodeOK")
	}
	if GetCode(stderrors.New("plain")) != CodeUnknown {
		t.Error("plain error should map to CodeUnknown")
	}
	if GetCode(NotFound("missing")) != ErrCodeNotFound {
		t.Error("AppError should surface its own code")
	}
}

func TestWithDetail(t *testing.T) {
	base := InvalidParam("text must not be empty")
	detailed := base.WithDetail("doc_id=abc")
	if base.Detail != "" {
		t.Error("WithDetail must not mutate the receiver")
	}
	if !strings.Contains(detailed.Error(), "doc_id=abc") {
		t.Errorf("Error() = %q, want detail included", detailed.Error())
	}

	var nilErr *AppError
	if nilErr.WithDetail("x") != nil {
		t.Error("WithDetail on nil should return nil")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	if got := HTTPStatusForCode(ErrCodeNotFound); got != 404 {
		t.Errorf("status = %d, want 404", got)
	}
	if got := HTTPStatusForCode(ErrorCode("NOPE_999")); got != 500 {
		t.Errorf("unknown code status = %d, want 500", got)
	}
	if !IsClientError(ErrCodeBadRequest) {
		t.Error("bad request should be a client error")
	}
	if !IsServerError(ErrCodeGraphUnavailable) {
		t.Error("graph unavailable should be a server error")
	}
}

func TestModuleForCode(t *testing.T) {
	if got := ModuleForCode(ErrCodeNumeralUnparseable); got != "ENG" {
		t.Errorf("module = %s, want ENG", got)
	}
	if got := ModuleForCode(ErrorCode("")); got != "UNKNOWN" {
		t.Errorf("module = %s, want UNKNOWN", got)
	}
}
