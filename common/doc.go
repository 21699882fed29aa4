// Package common holds process-wide helpers shared by the binaries: logger
// construction and build version.
package common
