// Package testsupport holds helpers shared by package tests: temp-directory
// configs, shell-script stubs for external tools, and sized fixture files.
package testsupport
