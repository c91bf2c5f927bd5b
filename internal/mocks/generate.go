// Package mocks provides test doubles for the ports interfaces.
//
// Hand-written doubles live in doubles.go and cover the common cases
// (function-field overrides, call counting) without codegen. For tests
// that want expectation-style setup, gomock mocks can be generated with:
//
//	go generate ./internal/mocks
package mocks

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=directory_fetcher_mock.go github.com/pleasantco/authzd/internal/ports DirectoryFetcher

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=auth_cache_mock.go github.com/pleasantco/authzd/internal/ports AuthCache

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=token_validator_mock.go github.com/pleasantco/authzd/internal/ports TokenValidator

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=login_provider_mock.go github.com/pleasantco/authzd/internal/ports LoginProvider
