// Package mocks provides mock implementations for testing the catalog admin.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	repo := mocks.NewMockRoleRepository(ctrl)
//	repo.EXPECT().RolesForEmail(gomock.Any(), "admin@example.com").Return([]auth.Role{auth.RoleAdmin}, nil)
package mocks

// Generate mocks for RoleRepository and TokenVerifier from internal/ports.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ports_mock.go github.com/dscatalog/catalog-admin/internal/ports RoleRepository,TokenVerifier
