package errors

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestEngineErrorString(t *testing.T) {
	err := &EngineError{
		Op:   "layout.Run",
		Kind: KindLayout,
		Err:  ErrLayoutNonConvergence,
	}
	want := "layout.Run [layout]: layout did not converge"
	if got := err.Error(); got != want {
		t.Errorf("EngineError.Error() = %q, want %q", got, want)
	}
}

func TestEngineErrorWithNode(t *testing.T) {
	err := &EngineError{
		Op:   "core.FlushBuild",
		Kind: KindRebuild,
		Node: "7v2",
		Err:  ErrNonConvergentRebuild,
	}
	got := err.Error()
	if !strings.Contains(got, "node=7v2") {
		t.Errorf("error string %q should contain node", got)
	}
	if !Is(err, ErrNonConvergentRebuild) {
		t.Error("expected EngineError to unwrap to its sentinel")
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindBuild, "build"},
		{KindContract, "contract"},
		{KindRebuild, "rebuild"},
		{KindLayout, "layout"},
		{KindResource, "resource"},
		{KindDevice, "device"},
		{KindAsync, "async"},
		{KindPanic, "panic"},
		{KindConfig, "config"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestContractErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("build: %w", &ContractError{Rule: ErrDuplicateKey, Detail: `key "a" under Row`})
	if !Is(err, ErrDuplicateKey) {
		t.Fatal("expected wrapped contract error to match ErrDuplicateKey")
	}
	var ce *ContractError
	if !As(err, &ce) {
		t.Fatal("expected As to find ContractError")
	}
	if !strings.Contains(ce.Error(), `key "a" under Row`) {
		t.Errorf("ContractError.Error() = %q, missing detail", ce.Error())
	}
}

func TestPanicErrorString(t *testing.T) {
	err := &PanicError{
		Value:     "test panic",
		Timestamp: time.Now(),
	}
	got := err.Error()
	want := "panic: test panic"
	if got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
}

func TestPanicErrorStringWithOp(t *testing.T) {
	err := &PanicError{
		Op:        "engine.HandleEvent",
		Value:     "test panic",
		Timestamp: time.Now(),
	}
	got := err.Error()
	want := "panic in engine.HandleEvent: test panic"
	if got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
}

func TestReport(t *testing.T) {
	var capturedErr *EngineError
	handler := &testHandler{
		onError: func(err *EngineError) {
			capturedErr = err
		},
	}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	Report(&EngineError{
		Op:   "test.op",
		Kind: KindConfig,
		Err:  New("bad value"),
	})

	if capturedErr == nil {
		t.Fatal("expected error to be captured")
	}
	if capturedErr.Op != "test.op" {
		t.Errorf("Op = %q, want %q", capturedErr.Op, "test.op")
	}
	if capturedErr.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestDiagnostic(t *testing.T) {
	var captured []*EngineError
	handler := &testHandler{
		onError: func(err *EngineError) {
			captured = append(captured, err)
		},
	}
	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	d := Diagnostic("gpu.Atlas.Acquire", KindResource, "", 12, ErrResourceExhausted)
	if len(captured) != 1 || captured[0] != d {
		t.Fatalf("expected diagnostic to be reported once, got %d", len(captured))
	}
	if d.Frame != 12 {
		t.Errorf("Frame = %d, want 12", d.Frame)
	}
}

func TestReportPanic(t *testing.T) {
	var capturedPanic *PanicError
	handler := &testHandler{
		onPanic: func(err *PanicError) {
			capturedPanic = err
		},
	}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	ReportPanic(&PanicError{
		Value:     "test panic value",
		Timestamp: time.Now(),
	})

	if capturedPanic == nil {
		t.Fatal("expected panic to be captured")
	}
	if capturedPanic.Value != "test panic value" {
		t.Errorf("Value = %v, want %q", capturedPanic.Value, "test panic value")
	}
}

func TestRecover(t *testing.T) {
	var capturedPanic *PanicError
	handler := &testHandler{
		onPanic: func(err *PanicError) {
			capturedPanic = err
		},
	}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	func() {
		defer Recover("test.recover")
		panic("intentional test panic")
	}()

	if capturedPanic == nil {
		t.Fatal("expected panic to be recovered and captured")
	}
	if capturedPanic.Value != "intentional test panic" {
		t.Errorf("Value = %v, want %q", capturedPanic.Value, "intentional test panic")
	}
	if capturedPanic.Op != "test.recover" {
		t.Errorf("Op = %q, want %q", capturedPanic.Op, "test.recover")
	}
}

func TestCaptureStack(t *testing.T) {
	stack := CaptureStack()
	if stack == "" {
		t.Error("expected non-empty stack trace")
	}
	if !strings.Contains(stack, "testing") && !strings.Contains(stack, "runtime") {
		t.Errorf("stack trace should contain testing or runtime frames, got: %s", stack)
	}
}

func TestSetHandlerNil(t *testing.T) {
	SetHandler(nil)
	if DefaultHandler == nil {
		t.Error("SetHandler(nil) should set default LogHandler, not nil")
	}
	if _, ok := DefaultHandler.(*LogHandler); !ok {
		t.Errorf("SetHandler(nil) should set LogHandler, got %T", DefaultHandler)
	}
}

func TestBuildErrorString(t *testing.T) {
	err := &BuildError{
		Widget:    "*widgets.Counter",
		Recovered: "nil pointer dereference",
		Timestamp: time.Now(),
	}
	got := err.Error()
	want := "panic in *widgets.Counter.Build(): nil pointer dereference"
	if got != want {
		t.Errorf("BuildError.Error() = %q, want %q", got, want)
	}

	err2 := &BuildError{
		Widget: "*widgets.Counter",
		Err:    ErrDisposed,
	}
	if got := err2.Error(); !strings.Contains(got, "error in *widgets.Counter.Build()") {
		t.Errorf("BuildError.Error() = %q, should contain 'error in'", got)
	}

	err3 := &BuildError{Widget: "*widgets.Counter"}
	want3 := "unknown error in *widgets.Counter.Build()"
	if got := err3.Error(); got != want3 {
		t.Errorf("BuildError.Error() = %q, want %q", got, want3)
	}
}

func TestReportBuildError(t *testing.T) {
	var capturedErr *BuildError
	handler := &testHandler{
		onBuildError: func(err *BuildError) {
			capturedErr = err
		},
	}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	ReportBuildError(&BuildError{
		Widget:    "*widgets.Test",
		Recovered: "test panic",
	})

	if capturedErr == nil {
		t.Fatal("expected build error to be captured")
	}
	if capturedErr.Widget != "*widgets.Test" {
		t.Errorf("Widget = %q, want %q", capturedErr.Widget, "*widgets.Test")
	}
	if capturedErr.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestLogHandlerWritesAttributes(t *testing.T) {
	var buf bytes.Buffer
	h := &LogHandler{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	h.HandleError(&EngineError{
		Op:    "gpu.Renderer.Render",
		Kind:  KindResource,
		Err:   ErrResourceExhausted,
		Node:  "3v1",
		Frame: 4,
	})
	out := buf.String()
	for _, want := range []string{"level=WARN", "op=gpu.Renderer.Render", "kind=resource", "frame=4", "node=3v1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

type testHandler struct {
	onError      func(*EngineError)
	onPanic      func(*PanicError)
	onBuildError func(*BuildError)
}

func (h *testHandler) HandleError(err *EngineError) {
	if h.onError != nil {
		h.onError(err)
	}
}

func (h *testHandler) HandlePanic(err *PanicError) {
	if h.onPanic != nil {
		h.onPanic(err)
	}
}

func (h *testHandler) HandleBuildError(err *BuildError) {
	if h.onBuildError != nil {
		h.onBuildError(err)
	}
}
