package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "assetpipe.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Message() != "invalid configuration" {
			t.Errorf("expected message 'invalid configuration', got %s", err.Message())
		}

		file, exists := err.Context()["file"]
		if !exists || file != "assetpipe.yaml" {
			t.Errorf("expected context file=assetpipe.yaml, got %v", file)
		}
	})

	t.Run("Detection through wrapping", func(t *testing.T) {
		err := fmt.Errorf("stage bundle: %w", BundleError("esbuild failed").Build())

		if !HasCategory(err, CategoryBundle) {
			t.Error("expected wrapped error to have bundle category")
		}
		if GetCategory(err) != CategoryBundle {
			t.Errorf("expected bundle category, got %s", GetCategory(err))
		}
		if GetCategory(errors.New("plain")) != CategoryInternal {
			t.Error("expected plain errors to default to internal")
		}
	})

	t.Run("Unwrap", func(t *testing.T) {
		cause := errors.New("disk full")
		err := FileSystemError("write manifest").WithCause(cause).Build()
		if !errors.Is(err, cause) {
			t.Error("expected error to wrap cause")
		}
	})
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name     string
		builder  *ErrorBuilder
		category ErrorCategory
		severity ErrorSeverity
	}{
		{"ConfigError", ConfigError("test"), CategoryConfig, SeverityFatal},
		{"ValidationError", ValidationError("test"), CategoryValidation, SeverityFatal},
		{"NotFoundError", NotFoundError("test"), CategoryNotFound, SeverityError},
		{"BuildError", BuildError("test"), CategoryBuild, SeverityFatal},
		{"BundleError", BundleError("test"), CategoryBundle, SeverityFatal},
		{"TemplateError", TemplateError("test"), CategoryTemplate, SeverityFatal},
		{"ImageError", ImageError("test"), CategoryImage, SeverityWarning},
		{"FileSystemError", FileSystemError("test"), CategoryFileSystem, SeverityError},
		{"ServerError", ServerError("test"), CategoryServer, SeverityFatal},
		{"InternalError", InternalError("test"), CategoryInternal, SeverityFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder.Build()
			if err.Category() != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category())
			}
			if err.Severity() != tt.severity {
				t.Errorf("expected severity %s, got %s", tt.severity, err.Severity())
			}
		})
	}
}

func TestErrorContext_SetOnNil(t *testing.T) {
	var ctx ErrorContext
	ctx = ctx.Set("path", "dist")
	ctx = ctx.Set("path", "public")
	if len(ctx) != 1 || ctx["path"] != "public" {
		t.Errorf("expected single overwritten key, got %v", ctx)
	}
}

func TestClassifiedError_Format(t *testing.T) {
	err := BundleError("bundle entry index").WithCause(errors.New("unexpected token")).Build()
	if got := err.Error(); got != "bundle: bundle entry index: unexpected token" {
		t.Errorf("unexpected format %q", got)
	}
	if err.IsWarning() {
		t.Error("bundle errors must not be warnings")
	}
	warn := ImageError("skip").WithSeverity(SeverityWarning).Build()
	if !warn.IsWarning() || warn.Error() != "image: skip" {
		t.Errorf("unexpected warning error %q", warn.Error())
	}
}
