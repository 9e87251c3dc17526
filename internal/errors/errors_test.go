package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/vango-dev/reconciler/pkg/engine"
	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/protocol"
	"github.com/vango-dev/reconciler/pkg/sched"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "render panic",
			code:    "R001",
			wantMsg: "Component panicked during render",
			wantCat: CategoryRender,
		},
		{
			name:    "hook order",
			code:    "R003",
			wantMsg: "State slot order changed between renders",
			wantCat: CategoryRender,
		},
		{
			name:    "commit failure",
			code:    "C001",
			wantMsg: "Host mutation failed during commit",
			wantCat: CategoryCommit,
		},
		{
			name:    "config",
			code:    "K001",
			wantMsg: "Configuration file not found",
			wantCat: CategoryConfig,
		},
		{
			name:    "unknown error code",
			code:    "Z999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestEngineCodesRegistered(t *testing.T) {
	for _, code := range []string{
		engine.CodeRenderPanic,
		engine.CodeHostCreate,
		engine.CodeHookOrder,
		engine.CodeSetDuringRender,
		engine.CodeCommitFailed,
	} {
		tmpl, ok := GetTemplate(code)
		if !ok {
			t.Errorf("%s not registered", code)
			continue
		}
		if tmpl.Detail == "" || tmpl.Suggestion == "" {
			t.Errorf("%s: template missing detail or suggestion", code)
		}
	}
}

func TestDiagnostic_Error(t *testing.T) {
	err := New("R004")
	if got, want := err.Error(), "R004: State set during render"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err2 := &Diagnostic{Message: "test error"}
	if err2.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", err2.Error(), "test error")
	}
}

func TestDiagnostic_Wrap(t *testing.T) {
	inner := stderrors.New("disk full")
	outer := New("S002").Wrap(inner)

	if !stderrors.Is(outer, inner) {
		t.Error("errors.Is should see the wrapped error")
	}
	if outer.Unwrap() != inner {
		t.Error("Unwrap() should return wrapped error")
	}
}

var exploding = vdom.Define("Exploding", func(h vdom.Hooks, props vdom.Props) *vdom.VNode {
	panic("boom")
})

func TestFromError(t *testing.T) {
	if FromError(nil) != nil {
		t.Error("FromError(nil) should return nil")
	}

	d := New("K002")
	if FromError(fmt.Errorf("load: %w", d)) != d {
		t.Error("FromError should return a wrapped Diagnostic as-is")
	}

	plain := stderrors.New("plain failure")
	got := FromError(plain)
	if got.Code != "" || got.Message != "plain failure" || got.Wrapped != plain {
		t.Errorf("FromError(plain) = %+v", got)
	}

	got = FromError(fmt.Errorf("slot 2: %w", engine.ErrHookOrder))
	if got.Code != engine.CodeHookOrder {
		t.Errorf("hook order code = %q, want %q", got.Code, engine.CodeHookOrder)
	}

	ce := &engine.CommitError{Op: "insert", Target: "li", Err: stderrors.New("detached parent")}
	got = FromError(ce)
	if got.Code != engine.CodeCommitFailed || got.Component != "li" {
		t.Errorf("commit diagnostic = %+v", got)
	}
	if !strings.Contains(got.Detail, "detached parent") {
		t.Errorf("Detail = %q, want cause", got.Detail)
	}

	got = FromError(fmt.Errorf("read frame: %w", protocol.ErrFrameTooLarge))
	if got.Code != "P001" || got.Category != CategoryProtocol {
		t.Errorf("protocol diagnostic = %+v", got)
	}
}

func TestFromRenderPanic(t *testing.T) {
	m := host.NewMemory()
	e := engine.New(m, sched.NewManual())
	if err := e.Mount(m.NewContainer("root"), vdom.C(exploding)); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	err := e.Flush()
	if err == nil {
		t.Fatal("Flush succeeded, want render panic")
	}

	d := FromError(err)
	if d.Code != engine.CodeRenderPanic {
		t.Errorf("Code = %q, want %q", d.Code, engine.CodeRenderPanic)
	}
	if d.Component != "Exploding" {
		t.Errorf("Component = %q, want Exploding", d.Component)
	}
	if len(d.Stack) == 0 {
		t.Error("Stack is empty")
	}
	if !stderrors.Is(d, err) && d.Wrapped != err {
		t.Error("diagnostic does not wrap the engine error")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	d := New("R001").WithComponent("Counter").WithStack([]byte("goroutine 1 [running]:\nmain.main()\n"))
	formatted := d.Format()

	for _, want := range []string{
		"ERROR R001: Component panicked during render",
		"in Counter",
		"goroutine 1 [running]:",
		"Hint:",
		"Learn more:",
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format missing %q:\n%s", want, formatted)
		}
	}
	if strings.Contains(formatted, "\033[") {
		t.Error("Format used colors while disabled")
	}
}

func TestFormatTruncatesStack(t *testing.T) {
	DisableColors()
	defer EnableColors()

	stack := strings.Repeat("frame\n", stackLines+5)
	formatted := New("R001").WithStack([]byte(stack)).Format()
	if n := strings.Count(formatted, "frame"); n != stackLines {
		t.Errorf("stack lines shown = %d, want %d", n, stackLines)
	}
	if !strings.Contains(formatted, "...") {
		t.Error("truncated stack has no ellipsis")
	}
}

func TestFormatCompact(t *testing.T) {
	got := New("R003").WithComponent("Form").FormatCompact()
	want := "R003: State slot order changed between renders (in Form)"
	if got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	json := New("C001").WithComponent("ul").Wrap(stderrors.New("gone")).FormatJSON()

	for _, want := range []string{
		`"code":"C001"`,
		`"category":"commit"`,
		`"component":"ul"`,
		`"cause":"gone"`,
	} {
		if !strings.Contains(json, want) {
			t.Errorf("JSON missing %s: %s", want, json)
		}
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) != len(registry) {
		t.Errorf("GetAllCodes() returned %d codes, want %d", len(codes), len(registry))
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] > codes[i] {
			t.Errorf("codes not sorted: %v", codes)
			break
		}
	}
}

func TestRegister(t *testing.T) {
	Register("Z999", ErrorTemplate{
		Category: CategoryCLI,
		Message:  "Custom test error",
	})
	defer delete(registry, "Z999")

	if err := New("Z999"); err.Message != "Custom test error" {
		t.Errorf("Message = %q, want %q", err.Message, "Custom test error")
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("short text", 100)
	if len(got) != 1 || got[0] != "short text" {
		t.Errorf("wrapText short text: got %v", got)
	}

	got = wrapText("this is a longer text that should be wrapped", 20)
	if len(got) != 3 {
		t.Errorf("wrapText long text: expected 3 lines, got %d: %v", len(got), got)
	}

	if got = wrapText("", 10); len(got) != 0 {
		t.Errorf("wrapText empty: expected empty, got %v", got)
	}
}

func TestColorFunctions(t *testing.T) {
	EnableColors()
	if !strings.Contains(red("test"), "\033[31m") {
		t.Error("red should contain ANSI code when colors enabled")
	}

	DisableColors()
	if strings.Contains(red("test"), "\033[") {
		t.Error("red should not contain ANSI code when colors disabled")
	}
	EnableColors()
}
