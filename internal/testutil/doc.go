// Package testutil contains helper builders and stub agents used across
// tests to reduce boilerplate when constructing requests and exercising the
// runner pipeline. These helpers are intentionally minimal and are not
// intended for production usage.
package testutil
