// Package mocks provides mock implementations for testing service orchestration.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// port interfaces. The mocks are generated using go:generate directives and
// provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	source := mocks.NewMockProfileSource(ctrl)
//	source.EXPECT().ProfileByUserID(gomock.Any(), "u1").Return(profile, nil)
package mocks

// Generate mock for ProfileSource interface from internal/ports package.
// This creates MockProfileSource with ProfileByUserID.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_source_mock.go github.com/salesops/ui-api/internal/ports ProfileSource
