// Package model defines the provider-agnostic abstraction for language models
// used by model-advised solvers.
//
// Providers (OpenAI, Anthropic) implement the Model interface in their own
// subpackages so solvers stay decoupled from vendor SDKs. MockModel serves
// canned completions in tests.
package model
