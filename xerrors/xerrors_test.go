package xerrors

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	// nil 错误应返回 nil
	if err := Wrap(nil, "context"); err != nil {
		t.Errorf("Wrap(nil) = %v，期望 nil", err)
	}

	base := errors.New("base error")
	wrapped := Wrap(base, "context")
	if wrapped.Error() != "context: base error" {
		t.Errorf("Wrap(err).Error() = %q，期望 %q", wrapped.Error(), "context: base error")
	}
	if !errors.Is(wrapped, base) {
		t.Error("errors.Is(wrapped, base) = false，期望 true")
	}
}

func TestWrapf(t *testing.T) {
	if err := Wrapf(nil, "key %s", "A"); err != nil {
		t.Errorf("Wrapf(nil) = %v，期望 nil", err)
	}

	wrapped := Wrapf(ErrUnavailable, "key %s", "A")
	if wrapped.Error() != "key A: unavailable" {
		t.Errorf("Wrapf(err).Error() = %q，期望 %q", wrapped.Error(), "key A: unavailable")
	}
	if !Is(wrapped, ErrUnavailable) {
		t.Error("Is(wrapped, ErrUnavailable) = false，期望 true")
	}
}

func TestWithCode(t *testing.T) {
	if err := WithCode(nil, "CODE"); err != nil {
		t.Errorf("WithCode(nil) = %v，期望 nil", err)
	}

	coded := WithCode(errors.New("lock busy"), "LOCK_BUSY")
	if coded.Error() != "[LOCK_BUSY] lock busy" {
		t.Errorf("WithCode(err).Error() = %q", coded.Error())
	}

	// 包装后的带码错误依然应有 code
	wrapped := Wrap(coded, "acquire")
	if code := GetCode(wrapped); code != "LOCK_BUSY" {
		t.Errorf("GetCode(wrapped) = %q，期望 %q", code, "LOCK_BUSY")
	}
	if code := GetCode(errors.New("plain")); code != "" {
		t.Errorf("GetCode(plain) = %q，期望空", code)
	}
}

func TestCombine(t *testing.T) {
	if err := Combine(nil, nil); err != nil {
		t.Errorf("Combine(nil, nil) = %v，期望 nil", err)
	}

	e1 := errors.New("first")
	if err := Combine(nil, e1); err != e1 {
		t.Errorf("Combine(nil, e1) = %v，期望 e1", err)
	}

	e2 := errors.New("second")
	err := Combine(e1, e2)
	if err.Error() != "first (and 1 more errors)" {
		t.Errorf("Combine(e1, e2).Error() = %q", err.Error())
	}
	if !errors.Is(err, e2) {
		t.Error("errors.Is(combined, e2) = false，期望 true")
	}
}
