// Package domain contains the core domain entities and types used by the
// guard: risk classifications, navigation attempts and their decisions, and
// the incidents derived from them. These types are intentionally free of
// infrastructure concerns so they can be shared across packages.
package domain
