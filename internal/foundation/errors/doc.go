// Package errors provides the classified error primitives used across assetpipe.
//
// A ClassifiedError carries a category (config, bundle, filesystem, ...), a
// severity and optional structured context. The CLI adapter maps categories to
// process exit codes.
//
//	err := errors.BundleError("esbuild reported errors").
//		WithContext("entry", "index").
//		WithCause(cause).
//		Build()
package errors
