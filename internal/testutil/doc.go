// Package testutil contains fakes shared by the package tests: scripted
// single-agent and multi-agent solvers, a static multi-agent domain, a
// lifecycle call recorder and a logger that captures entries. They are not
// intended for production usage.
package testutil
